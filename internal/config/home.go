package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory destclean keeps its own state in.
const HomeEnv = "DESTCLEAN_HOME"

// GetHome returns the destclean state directory, creating it if needed.
// Priority order:
//  1. DESTCLEAN_HOME environment variable (if set)
//  2. the user cache directory joined with "destclean"
//  3. the system temp directory joined with "destclean"
func GetHome() (string, error) {
	home := homeDir()
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create destclean home directory: %w", err)
	}
	return home, nil
}

func homeDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "destclean")
	}
	return filepath.Join(os.TempDir(), "destclean")
}

// DefaultHistoryDB is the history database used unless history_db is set.
// It sits in the state directory so no destination can contain it.
func DefaultHistoryDB() string {
	return filepath.Join(homeDir(), "history.db")
}

// LockPath returns the lock file used to serialise runs on destination.
// The lock lives outside the destination so it can never be cleaned away.
func LockPath(destination string) (string, error) {
	abs, err := filepath.Abs(destination)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}

	home, err := GetHome()
	if err != nil {
		return "", err
	}

	locks := filepath.Join(home, "locks")
	if err := os.MkdirAll(locks, 0755); err != nil {
		return "", fmt.Errorf("create lock directory: %w", err)
	}

	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(locks, hex.EncodeToString(sum[:8])+".lock"), nil
}
