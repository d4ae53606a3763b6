package model

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/crypto/sha3"
)

// Field names used at the store boundary.
const (
	FieldType       = "type"
	FieldTitle      = "title"
	FieldContent    = "field_content"
	FieldURL        = "field_url"
	FieldID         = "field_id"
	FieldCreated    = "field_created"
	FieldIconURL    = "field_icon_url"
	FieldCategories = "field_categories"
)

// ErrInvalidPage is returned for a negative page or one whose row offset
// does not fit in an int.
var ErrInvalidPage = errors.New("invalid page")

// createdDateLength is the length of the date prefix shown in listings.
const createdDateLength = 10

// Node is a joke persisted as a content record.
// NID is assigned by the store on creation. ExternalID keeps the upstream id
// and is not unique: importing the same joke twice yields two nodes.
type Node struct {
	NID         string    `json:"nid" bson:"-"`
	Type        string    `json:"type" bson:"type"`
	Title       string    `json:"title" bson:"title"`
	Content     string    `json:"field_content" bson:"field_content"`
	URL         string    `json:"field_url" bson:"field_url"`
	ExternalID  string    `json:"field_id" bson:"field_id"`
	Created     string    `json:"field_created" bson:"field_created"`
	IconURL     string    `json:"field_icon_url,omitempty" bson:"field_icon_url,omitempty"`
	Categories  []string  `json:"field_categories,omitempty" bson:"field_categories,omitempty"`
	ContentHash string    `json:"content_hash" bson:"content_hash"`
	ImportedAt  time.Time `json:"imported_at" bson:"imported_at"`
}

// NewNode maps a JokeRecord onto a node of the given type.
// The title is the joke text.
func NewNode(nodeType string, j JokeRecord, now time.Time) *Node {
	return &Node{
		Type:        nodeType,
		Title:       j.Content,
		Content:     j.Content,
		URL:         j.URL,
		ExternalID:  j.ID,
		Created:     j.CreatedAt,
		IconURL:     j.IconURL,
		Categories:  append([]string(nil), j.Categories...),
		ContentHash: ContentHash(j.Content),
		ImportedAt:  now.UTC(),
	}
}

// ContentHash returns the hex SHA3-256 digest of a joke text.
func ContentHash(content string) string {
	sum := sha3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Fields returns the node as the flat field map used at the store boundary.
func (n *Node) Fields() map[string]any {
	return map[string]any{
		FieldType:       n.Type,
		FieldTitle:      n.Title,
		FieldContent:    n.Content,
		FieldURL:        n.URL,
		FieldID:         n.ExternalID,
		FieldCreated:    n.Created,
		FieldIconURL:    n.IconURL,
		FieldCategories: n.Categories,
	}
}

// JokeSummary is one row of the joke listing.
type JokeSummary struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	ID      string `json:"id"`
	Content string `json:"content"`
	Created string `json:"created"`
}

// Summary returns the listing row for the node.
// Created keeps only the leading date part of the upstream timestamp.
func (n *Node) Summary() JokeSummary {
	created := n.Created
	if len(created) > createdDateLength {
		created = created[:createdDateLength]
	}
	return JokeSummary{
		Title:   n.Title,
		URL:     n.URL,
		ID:      n.ExternalID,
		Content: n.Content,
		Created: created,
	}
}

// PageOffset returns the row offset of a zero-based page of size rows.
func PageOffset(page, size int) (int, error) {
	if page < 0 || (size > 0 && page > math.MaxInt/size) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	return page * size, nil
}
