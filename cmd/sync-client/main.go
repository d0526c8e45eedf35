package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	synchub "galhub/internal/sync"
)

// sync-client tails the TCP event feed and prints each library change. Mostly
// useful for debugging desktop client integrations.

func main() {
	addr := flag.String("addr", "127.0.0.1:9090", "TCP sync server address")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of formatted events")
	only := flag.String("only", "", "comma separated event types to show, e.g. game.insert,game.delete")
	flag.Parse()

	filter := map[string]bool{}
	for _, t := range strings.Split(*only, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[t] = true
		}
	}

	for {
		if err := tail(*addr, *raw, filter); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func tail(addr string, raw bool, filter map[string]bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev synchub.GameEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
			// welcome frames and anything untyped go out as-is
			if !raw && len(filter) > 0 {
				continue
			}
			fmt.Println(string(line))
			continue
		}
		if len(filter) > 0 && !filter[ev.Type] {
			continue
		}

		if raw {
			fmt.Println(string(line))
			continue
		}
		fmt.Printf("%s  %-12s  #%d  %s\n",
			ev.At.Format(time.TimeOnly), ev.Type, ev.GameID, ev.Name)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
