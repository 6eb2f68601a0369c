package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"fingerprint", Fingerprint("pasta", 2, nil), nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMemoryCache_SetRejectsInvalidKey(t *testing.T) {
	c := mustMemoryCache[int](t, DefaultPolicy())
	ctx := context.Background()

	if err := c.Set(ctx, "", 1, 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(\"\") = %v, want ErrInvalidKey", err)
	}
	if err := c.Set(ctx, strings.Repeat("k", MaxKeyLength+1), 1, 0); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Set(long) = %v, want ErrKeyTooLong", err)
	}
}

// Cache implementations are interchangeable behind the interface.
func TestCacheInterface_MemoryCache(t *testing.T) {
	var c Cache[[]byte] = mustMemoryCache[[]byte](t, DefaultPolicy())
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if c.Size(ctx) != 1 {
		t.Errorf("Size = %d, want 1", c.Size(ctx))
	}
}
