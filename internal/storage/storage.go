// Package storage persists named JSON collections on files, Postgres or memory.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Document is the full serialized content of one collection (a JSON array).
type Document struct {
	Name string
	Data []byte
}

// Collections loads and atomically replaces named collections. Save applies every document
// of a batch or none of them, as far as the backend allows.
type Collections interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, docs ...Document) error
}

// LoadInto decodes a collection into a slice of records. Missing collections are empty.
func LoadInto[T any](ctx context.Context, c Collections, name string) ([]T, error) {
	raw, err := c.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Encode serializes records as an indented JSON array.
func Encode[T any](name string, records []T) (Document, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return Document{Name: name, Data: data}, nil
}
