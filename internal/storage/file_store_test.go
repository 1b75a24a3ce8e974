package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestFileStore_MissingCollectionIsEmpty(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got, err := LoadInto[record](context.Background(), s, "requests")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %v", got)
	}
}

func TestFileStore_SaveBatchAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	a, _ := Encode("requests", []record{{ID: 1, Name: "uno"}, {ID: 2, Name: "dos"}})
	b, _ := Encode("offers", []record{{ID: 7, Name: "siete"}})
	if err := s.Save(ctx, a, b); err != nil {
		t.Fatalf("save: %v", err)
	}

	reqs, err := LoadInto[record](ctx, s, "requests")
	if err != nil {
		t.Fatalf("load requests: %v", err)
	}
	if len(reqs) != 2 || reqs[1].Name != "dos" {
		t.Fatalf("requests = %v", reqs)
	}
	offers, err := LoadInto[record](ctx, s, "offers")
	if err != nil {
		t.Fatalf("load offers: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != 7 {
		t.Fatalf("offers = %v", offers)
	}

	// Replacing must not leave temp files behind.
	a, _ = Encode("requests", []record{{ID: 3}})
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("second save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected files in data dir: %v", names)
	}
	if _, err := os.Stat(filepath.Join(dir, "requests.json")); err != nil {
		t.Fatalf("stat requests.json: %v", err)
	}
}

func TestFileStore_RejectsBadNames(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, name := range []string{"", "../escape", ".hidden", `a\b`} {
		if _, err := s.Load(context.Background(), name); err == nil {
			t.Errorf("Load(%q) succeeded", name)
		}
		if err := s.Save(context.Background(), Document{Name: name, Data: []byte("[]")}); err == nil {
			t.Errorf("Save(%q) succeeded", name)
		}
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requests.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _ := NewFileStore(dir)
	if _, err := LoadInto[record](context.Background(), s, "requests"); err == nil {
		t.Fatal("expected decode error")
	}
}
