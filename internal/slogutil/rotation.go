package slogutil

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const logFileMode = 0644

// rotatingFile appends to path and, before a write would push it past
// limit bytes, renames it to path.1 (shifting older copies up to
// path.<keep>) and starts over.
type rotatingFile struct {
	path  string
	limit int64
	keep  int

	mu      sync.Mutex
	f       *os.File
	written int64
}

func openRotating(path string, limit int64, keep int) (*rotatingFile, error) {
	rf := &rotatingFile{path: path, limit: limit, keep: keep}
	if err := rf.reopen(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) reopen() error {
	f, err := appendFile(rf.path)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	rf.f, rf.written = f, st.Size()
	return nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return 0, os.ErrClosed
	}
	if rf.written > 0 && rf.written+int64(len(p)) > rf.limit {
		if err := rf.shift(); err != nil && rf.f == nil {
			return 0, err
		}
	}
	n, err := rf.f.Write(p)
	rf.written += int64(n)
	return n, err
}

func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.f == nil {
		return nil
	}
	f := rf.f
	rf.f = nil
	return f.Close()
}

func (rf *rotatingFile) shift() error {
	if err := rf.f.Close(); err != nil {
		return err
	}
	rf.f = nil

	name := func(n int) string { return rf.path + "." + strconv.Itoa(n) }
	if rf.keep > 0 {
		os.Remove(name(rf.keep))
		for n := rf.keep; n > 1; n-- {
			os.Rename(name(n-1), name(n))
		}
		os.Rename(rf.path, name(1))
	} else {
		os.Remove(rf.path)
	}
	return rf.reopen()
}

func appendFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
}

// ParseSize reads a logging.maxSize value such as "512KB", "10MB", "1GB"
// or a plain byte count. It returns 0, meaning no rotation, for anything
// it cannot read.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	unit := int64(1)
	for _, u := range []struct {
		suffix string
		bytes  int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok {
			s, unit = strings.TrimSpace(rest), u.bytes
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return int64(n * float64(unit))
}

// OpenLogFile opens path for appending, with size-based rotation when
// maxSize is set.
func OpenLogFile(path, maxSize string, maxBackups int) (io.WriteCloser, error) {
	limit := ParseSize(maxSize)
	if limit <= 0 {
		return appendFile(path)
	}
	return openRotating(path, limit, maxBackups)
}
