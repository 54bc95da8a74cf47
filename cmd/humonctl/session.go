package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/humon/server/internal/client"
)

func loadSession(path string) (client.Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return client.Session{}, fmt.Errorf("no session at %s: %w", path, client.ErrNoSession)
		}
		return client.Session{}, fmt.Errorf("read session: %w", err)
	}

	var s client.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return client.Session{}, fmt.Errorf("decode session %s: %w", path, err)
	}
	if !s.Valid() {
		return client.Session{}, fmt.Errorf("session %s: %w", path, client.ErrNoSession)
	}
	return s, nil
}

// saveSession writes the session readable by the current user only.
func saveSession(path string, s client.Session) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
