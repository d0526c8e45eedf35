package settings

import (
	"context"
	"database/sql"
	"fmt"

	"galhub/internal/source"
)

// KeyBgmToken is the settings key holding the Bangumi personal access token.
const KeyBgmToken = "bgm_token"

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Get returns the stored value, or "" when the key has never been set.
func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// BgmTokenLookup adapts the repo into the token provider the Bangumi adapter
// consumes, typically wrapped in a source.TokenCache.
func (r *Repo) BgmTokenLookup() source.TokenFunc {
	return func(ctx context.Context) (string, error) {
		return r.Get(ctx, KeyBgmToken)
	}
}
