package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"galhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

var (
	flagAPI       string
	flagTokenPath string
)

func main() {
	root := &cobra.Command{
		Use:           "galhub",
		Short:         "galhub is a client for the galhub metadata server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagAPI, "api", defaultBaseURL, "API base URL")
	root.PersistentFlags().StringVar(&flagTokenPath, "token-file", defaultTokenPath(), "auth token file")

	root.AddCommand(authCmd(), gamesCmd(), settingsCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "register and log in"}

	var email, password, username string

	register := &cobra.Command{
		Use:   "register",
		Short: "create an account and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loginLike(cmd, "/auth/register", map[string]string{
				"username": username,
				"email":    email,
				"password": password,
			})
		},
	}
	register.Flags().StringVar(&username, "username", "", "username")
	register.MarkFlagRequired("username")

	login := &cobra.Command{
		Use:   "login",
		Short: "log in and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loginLike(cmd, "/auth/login", map[string]string{
				"email":    email,
				"password": password,
			})
		},
	}

	for _, c := range []*cobra.Command{register, login} {
		c.Flags().StringVar(&email, "email", "", "email")
		c.Flags().StringVar(&password, "password", "", "password")
		c.MarkFlagRequired("email")
		c.MarkFlagRequired("password")
	}

	cmd.AddCommand(register, login)
	return cmd
}

func loginLike(cmd *cobra.Command, path string, body map[string]string) error {
	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := callJSON(http.MethodPost, path, body, "", &resp); err != nil {
		return err
	}
	if err := saveToken(resp.Token); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", resp.User.Username)
	return nil
}

func gamesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "games", Short: "manage the game library"}

	var sort, order, search string
	list := &cobra.Command{
		Use:   "list",
		Short: "list stored games",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			q := url.Values{}
			if sort != "" {
				q.Set("sort", sort)
			}
			if order != "" {
				q.Set("order", order)
			}
			if search != "" {
				q.Set("q", search)
			}
			var resp struct {
				Total int           `json:"total"`
				Items []models.Game `json:"items"`
			}
			if err := callJSON(http.MethodGet, "/games?"+q.Encode(), nil, token, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d game(s)\n", resp.Total)
			for _, g := range resp.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "%5d  %-8s  %-40s  %s\n", g.ID, g.IDType, g.Name, g.Date)
			}
			return nil
		},
	}
	list.Flags().StringVar(&sort, "sort", "", "sort column (name, date, score, rank)")
	list.Flags().StringVar(&order, "order", "", "asc or desc")
	list.Flags().StringVar(&search, "q", "", "substring search")

	var asName, asID bool
	makeResolveBody := func(query string) map[string]any {
		body := map[string]any{"query": query}
		if asName {
			body["is_id"] = false
		}
		if asID {
			body["is_id"] = true
		}
		return body
	}

	resolve := &cobra.Command{
		Use:   "resolve <query>",
		Short: "preview what a query resolves to, without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			var g models.Game
			if err := callJSON(http.MethodPost, "/games/resolve", makeResolveBody(args[0]), token, &g); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g)
		},
	}

	add := &cobra.Command{
		Use:   "add <query>",
		Short: "resolve a query and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			var g models.Game
			if err := callJSON(http.MethodPost, "/games", makeResolveBody(args[0]), token, &g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added #%d %s\n", g.ID, g.Name)
			return nil
		},
	}

	for _, c := range []*cobra.Command{resolve, add} {
		c.Flags().BoolVar(&asName, "name", false, "force a name search")
		c.Flags().BoolVar(&asID, "id", false, "force id classification")
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "print one stored game as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			var g models.Game
			if err := callJSON(http.MethodGet, "/games/"+args[0], nil, token, &g); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g)
		},
	}

	var sets, clears []string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "patch fields of a stored game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			patch := map[string]any{}
			for _, kv := range sets {
				key, raw, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set wants field=value, got %q", kv)
				}
				// values that parse as JSON keep their type, anything
				// else is a plain string
				var v any
				if err := json.Unmarshal([]byte(raw), &v); err != nil {
					v = raw
				}
				patch[key] = v
			}
			for _, key := range clears {
				patch[key] = nil
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to change, pass --set or --clear")
			}
			var g models.Game
			if err := callJSON(http.MethodPatch, "/games/"+args[0], patch, token, &g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated #%d %s\n", g.ID, g.Name)
			return nil
		},
	}
	update.Flags().StringArrayVar(&sets, "set", nil, "field=value, repeatable (e.g. --set score=8.5)")
	update.Flags().StringArrayVar(&clears, "clear", nil, "field to clear, repeatable")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "delete a stored game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			if err := callJSON(http.MethodDelete, "/games/"+args[0], nil, token, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}

	cmd.AddCommand(list, resolve, add, show, update, rm)
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "server settings"}

	setToken := &cobra.Command{
		Use:   "set-bgm-token <token>",
		Short: "store the bangumi access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			body := map[string]string{"token": args[0]}
			if err := callJSON(http.MethodPut, "/settings/bgm-token", body, token, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return nil
		},
	}

	cmd.AddCommand(setToken)
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "stream library change events over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL := strings.Replace(flagAPI, "http", "ws", 1) + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", wsURL, err)
			}
			defer conn.Close()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), string(msg))
			}
		},
	}
}

func callJSON(method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, flagAPI+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".galhub", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(flagTokenPath), 0o755); err != nil {
		return fmt.Errorf("token dir: %w", err)
	}
	return os.WriteFile(flagTokenPath, []byte(token), 0o600)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(flagTokenPath)
	if err != nil {
		return "", fmt.Errorf("not logged in, run `galhub auth login` first")
	}
	return strings.TrimSpace(string(b)), nil
}
