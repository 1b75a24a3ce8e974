package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_FailSaveLeavesDataUntouched(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc, _ := Encode("requests", []record{{ID: 1}})
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.FailSave = errors.New("disk full")
	doc, _ = Encode("requests", []record{{ID: 1}, {ID: 2}})
	if err := s.Save(ctx, doc); err == nil {
		t.Fatal("expected failure")
	}

	got, err := LoadInto[record](ctx, s, "requests")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("failed save was applied: %v", got)
	}
	if s.Saves() != 1 {
		t.Fatalf("saves = %d, want 1", s.Saves())
	}
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	doc, err := Encode[record]("offers", nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(doc.Data) != "[]" {
		t.Fatalf("data = %s", doc.Data)
	}
}
