package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock guards a database file against a second orderdesk process. The
// lock lives in <db>.lock so the database itself is never flock'ed.
type FileLock struct {
	fl   *flock.Flock
	held bool
}

func NewFileLock(dbPath string) *FileLock {
	return &FileLock{fl: flock.New(dbPath + ".lock")}
}

// TryLock reports false without waiting when another process holds the lock.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0755); err != nil {
		return false, fmt.Errorf("lock dir: %w", err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("flock %s: %w", l.fl.Path(), err)
	}
	l.held = l.held || ok
	return ok, nil
}

// Unlock is a no-op when the lock is not held.
func (l *FileLock) Unlock() error {
	if !l.held {
		return nil
	}
	l.held = false
	return l.fl.Unlock()
}

func (l *FileLock) Path() string { return l.fl.Path() }
