package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJoke is returned when a JokeRecord lacks a required field.
var ErrInvalidJoke = errors.New("invalid joke")

// JokeRecord is a single joke as returned by the upstream API.
// Field tags follow the upstream JSON shape; "value" carries the joke text.
type JokeRecord struct {
	ID         string   `json:"id"`
	Content    string   `json:"value"`
	URL        string   `json:"url"`
	CreatedAt  string   `json:"created_at"`
	IconURL    string   `json:"icon_url"`
	Categories []string `json:"categories"`
}

// DecodeJoke parses one upstream response body.
func DecodeJoke(body []byte) (JokeRecord, error) {
	var rec JokeRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return JokeRecord{}, fmt.Errorf("decode joke: %w", err)
	}
	return rec, nil
}

// Validate reports every required field that is empty.
// Content, URL, ID and CreatedAt are required; IconURL and Categories are not.
func (j JokeRecord) Validate() error {
	var missing []string
	if strings.TrimSpace(j.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(j.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(j.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(j.CreatedAt) == "" {
		missing = append(missing, "createdAt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidJoke, strings.Join(missing, ", "))
	}
	return nil
}
