package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 500 * time.Millisecond
)

// JournalLock serializes journal writers. A snippets run and an approvals run
// started against the same journal take turns; the second waits until the
// first one has recorded its outcomes.
type JournalLock struct {
	lock *flock.Flock
	path string
}

// NewJournalLock returns the lock guarding the journal at dbPath. The lock
// file sits next to the journal as <journal>.lock.
func NewJournalLock(dbPath string) (*JournalLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve journal path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &JournalLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock waits for the journal until ctx is done. Interrupting a run that is
// still waiting leaves the journal untouched.
func (l *JournalLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire journal lock %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.Warnf("Another protexsync run is writing to %s, waiting for it to finish", l.path)
	if _, err := l.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("waiting for journal lock %s: %w", l.path, err)
	}
	return nil
}

func (l *JournalLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release journal lock %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the journal path. An empty path means
// ~/.config/protexsync/journal.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "protexsync", "journal.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
