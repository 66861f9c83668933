package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Credentials are a saved login for one server
type Credentials struct {
	Server    string
	Login     string
	Password  string
	UpdatedAt time.Time
}

// SaveCredentials saves or updates the login for a server
func (d *DB) SaveCredentials(server, login, password string) error {
	_, err := d.Exec(`
        INSERT INTO credentials (server, login, password, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(server) DO UPDATE SET
            login = excluded.login,
            password = excluded.password,
            updated_at = CURRENT_TIMESTAMP
    `, server, login, password)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// GetCredentials returns the saved login for a server, or nil when there is none
func (d *DB) GetCredentials(server string) (*Credentials, error) {
	var c Credentials
	err := d.QueryRow(`
        SELECT server, login, password, updated_at
        FROM credentials
        WHERE server = ?
    `, server).Scan(&c.Server, &c.Login, &c.Password, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credentials: %w", err)
	}
	return &c, nil
}

// DeleteCredentials removes the saved login for a server
func (d *DB) DeleteCredentials(server string) error {
	_, err := d.Exec("DELETE FROM credentials WHERE server = ?", server)
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}
