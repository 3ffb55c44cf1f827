// Package backup implements JSON snapshot export and restore for the account
// database, targeting either a local file or an S3-compatible object store.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

// SnapshotVersion is the current snapshot format version. Restore refuses
// snapshots written by a newer format.
const SnapshotVersion = 1

// Snapshot is one full export of the account database.
type Snapshot struct {
	Version   int                `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	Users     []*store.User      `json:"users"`
	Tokens    []*store.TempToken `json:"tokens"`
}

// Mode controls how Restore treats records that already exist.
type Mode int

const (
	// ModeSkip keeps existing records and inserts only missing ones.
	ModeSkip Mode = iota

	// ModeReplace overwrites existing records with snapshot contents.
	ModeReplace
)

// Result summarizes what a restore changed.
type Result struct {
	UsersRestored  int
	UsersSkipped   int
	TokensRestored int
	TokensSkipped  int
	TokensExpired  int
}

// Export reads every user and pending token out of the store.
func Export(ctx context.Context, st store.Store) (*Snapshot, error) {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	tokens, err := st.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export tokens: %w", err)
	}
	return &Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: time.Now().UTC(),
		Users:     users,
		Tokens:    tokens,
	}, nil
}

// Restore inserts the snapshot's records into the store. Tokens already
// expired at restore time are dropped; they could never be confirmed.
func Restore(ctx context.Context, st store.Store, snap *Snapshot, mode Mode) (*Result, error) {
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (this build reads up to %d)",
			snap.Version, SnapshotVersion)
	}

	res := &Result{}
	for _, user := range snap.Users {
		err := st.CreateUser(ctx, user)
		if errors.Is(err, store.ErrUserExists) {
			if mode == ModeSkip {
				res.UsersSkipped++
				continue
			}
			if err := st.DeleteUser(ctx, user.Username); err != nil {
				return res, fmt.Errorf("failed to replace user %q: %w", user.Username, err)
			}
			err = st.CreateUser(ctx, user)
		}
		if err != nil {
			return res, fmt.Errorf("failed to restore user %q: %w", user.Username, err)
		}
		res.UsersRestored++
	}

	now := time.Now().UTC()
	for _, token := range snap.Tokens {
		if token.Expired(now) {
			res.TokensExpired++
			continue
		}
		err := st.CreateToken(ctx, token)
		if errors.Is(err, store.ErrTokenExists) {
			if mode == ModeSkip {
				res.TokensSkipped++
				continue
			}
			if err := st.DeleteToken(ctx, token.Token); err != nil {
				return res, fmt.Errorf("failed to replace token: %w", err)
			}
			err = st.CreateToken(ctx, token)
		}
		if err != nil {
			return res, fmt.Errorf("failed to restore token: %w", err)
		}
		res.TokensRestored++
	}
	return res, nil
}

// WriteFile writes the snapshot to path atomically: the JSON goes to a
// temporary file in the same directory, which is renamed over path only
// after a complete write.
func WriteFile(snap *Snapshot, path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		// No-ops once the rename has happened.
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	// The snapshot holds every enrolled public key and pending token.
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set snapshot mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ReadFile loads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save exports the store and writes the snapshot to dest, which is either a
// local path or an s3://bucket/key URI.
func Save(ctx context.Context, st store.Store, dest string, opts S3Options) (*Snapshot, error) {
	loc, err := ParseLocation(dest)
	if err != nil {
		return nil, err
	}
	snap, err := Export(ctx, st)
	if err != nil {
		return nil, err
	}
	if loc.IsS3() {
		if err := Upload(ctx, snap, loc, opts); err != nil {
			return nil, err
		}
		return snap, nil
	}
	if err := WriteFile(snap, loc.Path); err != nil {
		return nil, err
	}
	return snap, nil
}

// Load reads a snapshot from src, which is either a local path or an
// s3://bucket/key URI.
func Load(ctx context.Context, src string, opts S3Options) (*Snapshot, error) {
	loc, err := ParseLocation(src)
	if err != nil {
		return nil, err
	}
	if loc.IsS3() {
		return Download(ctx, loc, opts)
	}
	return ReadFile(loc.Path)
}
