package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

func testTokens(t *testing.T, factory StoreFactory) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := factory(t)
		want := sampleToken("deadbeef")
		if err := s.CreateToken(ctx, want); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}

		got, err := s.GetToken(ctx, "deadbeef")
		if err != nil {
			t.Fatalf("GetToken failed: %v", err)
		}
		if got.Token != "deadbeef" {
			t.Errorf("token = %q, want %q", got.Token, "deadbeef")
		}
		if got.PK != want.PK || got.DeviceName != want.DeviceName {
			t.Errorf("token fields = %+v, want %+v", got, want)
		}
		if !got.Expiry.Equal(want.Expiry) {
			t.Errorf("expiry = %v, want %v", got.Expiry, want.Expiry)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateToken(ctx, sampleToken("deadbeef")); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
		err := s.CreateToken(ctx, sampleToken("deadbeef"))
		if !errors.Is(err, store.ErrTokenExists) {
			t.Errorf("duplicate create returned %v, want ErrTokenExists", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := factory(t)
		_, err := s.GetToken(ctx, "missing")
		if !errors.Is(err, store.ErrTokenNotFound) {
			t.Errorf("GetToken returned %v, want ErrTokenNotFound", err)
		}
	})

	t.Run("GetExpired", func(t *testing.T) {
		s := factory(t)
		tok := sampleToken("deadbeef")
		tok.CreatedAt = time.Now().UTC().Add(-time.Hour)
		tok.Expiry = tok.CreatedAt.Add(10 * time.Minute)
		if err := s.CreateToken(ctx, tok); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}

		// Expired tokens are still returned. Expiry handling belongs to
		// the caller, which reports expired and absent tokens differently.
		got, err := s.GetToken(ctx, "deadbeef")
		if err != nil {
			t.Fatalf("GetToken failed for an expired token: %v", err)
		}
		if !got.Expired(time.Now().UTC()) {
			t.Error("token should report expired")
		}
	})

	t.Run("List", func(t *testing.T) {
		s := factory(t)
		for _, id := range []string{"cc", "aa", "bb"} {
			if err := s.CreateToken(ctx, sampleToken(id)); err != nil {
				t.Fatalf("CreateToken(%q) failed: %v", id, err)
			}
		}
		tokens, err := s.ListTokens(ctx)
		if err != nil {
			t.Fatalf("ListTokens failed: %v", err)
		}
		if len(tokens) != 3 {
			t.Fatalf("listed %d tokens, want 3", len(tokens))
		}
		for i, want := range []string{"aa", "bb", "cc"} {
			if tokens[i].Token != want {
				t.Errorf("tokens[%d] = %q, want %q", i, tokens[i].Token, want)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateToken(ctx, sampleToken("deadbeef")); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
		if err := s.DeleteToken(ctx, "deadbeef"); err != nil {
			t.Fatalf("DeleteToken failed: %v", err)
		}
		_, err := s.GetToken(ctx, "deadbeef")
		if !errors.Is(err, store.ErrTokenNotFound) {
			t.Errorf("GetToken after delete returned %v, want ErrTokenNotFound", err)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		s := factory(t)
		err := s.DeleteToken(ctx, "missing")
		if !errors.Is(err, store.ErrTokenNotFound) {
			t.Errorf("DeleteToken returned %v, want ErrTokenNotFound", err)
		}
	})
}
