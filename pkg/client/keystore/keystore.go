// Package keystore persists account private keys for the client CLI.
//
// One file per account: {username}_privkey.txt under the zkauth user config
// directory, holding the private scalar in decimal. Files are protected by
// mode 0600 only; guarding the machine itself is out of scope.
package keystore

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const keySuffix = "_privkey.txt"

// ErrKeyNotFound is returned by Load when no key is stored for the username.
var ErrKeyNotFound = errors.New("no stored key")

// Dir returns the directory keys live in, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zkauth")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "zkauth")
}

// Path returns the key file path for username.
func Path(username string) string {
	return filepath.Join(Dir(), username+keySuffix)
}

// Save writes the private scalar for username, creating the key directory
// as needed. An existing key is overwritten.
func Save(username string, key *big.Int) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	dir := Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	data := []byte(key.String() + "\n")
	if err := os.WriteFile(filepath.Join(dir, username+keySuffix), data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Load reads the private scalar stored for username.
func Load(username string) (*big.Int, error) {
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(Path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %q", ErrKeyNotFound, username)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, ok := new(big.Int).SetString(strings.TrimSpace(string(data)), 10)
	if !ok {
		return nil, fmt.Errorf("key file for %q is not a decimal integer", username)
	}
	return key, nil
}

// Delete removes the stored key for username. Deleting a key that does not
// exist is not an error.
func Delete(username string) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := os.Remove(Path(username)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}

// List returns the usernames with a stored key, sorted.
func List() ([]string, error) {
	entries, err := os.ReadDir(Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if u, ok := strings.CutSuffix(e.Name(), keySuffix); ok {
			names = append(names, u)
		}
	}
	sort.Strings(names)
	return names, nil
}

// checkUsername rejects names that would escape the key directory.
func checkUsername(username string) error {
	if username == "" || strings.ContainsAny(username, `/\`) || username != filepath.Base(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	return nil
}
