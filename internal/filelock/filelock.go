// Package filelock provides advisory, process-wide exclusive locks on files.
package filelock

import (
	"os"
	"path/filepath"
)

// Lock is an advisory lock held on an open lock file.
type Lock struct {
	file *os.File
}

// Acquire blocks until it holds an exclusive lock on path, creating the file
// and its directory if needed.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. It is safe to call twice.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = unlockFile(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}
