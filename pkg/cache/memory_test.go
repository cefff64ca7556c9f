package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a stored value When Get before expiry Then returns value", func(t *testing.T) {
		s := NewMemory()
		defer s.Close()

		if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "v" {
			t.Errorf("expected v, got %s", got)
		}
	})

	t.Run("Given an expired value When Get Then returns ErrMiss", func(t *testing.T) {
		s := NewMemory()
		defer s.Close()

		if err := s.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("Given a deleted key When Get Then returns ErrMiss", func(t *testing.T) {
		s := NewMemory()
		defer s.Close()

		s.Set(ctx, "k", []byte("v"), time.Minute)
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("Given JSON helpers When round-tripping Then value is preserved", func(t *testing.T) {
		s := NewMemory()
		defer s.Close()

		type payload struct {
			ID    string `json:"id"`
			Count int    `json:"count"`
		}
		in := payload{ID: "a", Count: 3}
		if err := SetJSON(ctx, s, "p", in, time.Minute); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}
		var out payload
		if err := GetJSON(ctx, s, "p", &out); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if out != in {
			t.Errorf("expected %+v, got %+v", in, out)
		}
	})
}
