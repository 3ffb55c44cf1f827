// Package badger implements the store contracts on an embedded Badger
// database. Documents are stored as JSON under single-letter key namespaces,
// and every mutation runs in one transaction, which gives the document-level
// atomicity the contracts require.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/zkauth/internal/logger"
)

// Store is a Badger-backed store handle.
type Store struct {
	db *badgerdb.DB
}

// New opens (or creates) the Badger database at the given directory.
func New(path string) (*Store, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(badgerLogger{})
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// HealthCheck verifies the database can still serve a read transaction.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(func(txn *badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a write transaction, retrying when Badger's optimistic
// concurrency detects a conflict on the touched keys.
func (s *Store) update(fn func(txn *badgerdb.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if errors.Is(err, badgerdb.ErrConflict) {
			continue
		}
		return err
	}
}

// badgerLogger routes Badger's internal logging into the structured logger.
// Badger's info-level output is chatty, so it lands on debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
