package journey

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"devjourney/internal/errors"
	"devjourney/internal/filelock"
	"devjourney/internal/paths"
	"devjourney/internal/slogutil"
)

// Store reads and writes journey files in a directory, one file per language.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir. A nil logger discards output.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: slogutil.Component(logger, "journey"),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Dir returns the directory holding the journey files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the journey file for a language.
func (s *Store) Path(language string) string {
	return filepath.Join(s.dir, paths.JourneyFileName(language))
}

// Load reads the record for language. A missing file yields an empty record.
// An unreadable document yields an empty record together with a
// CORRUPT_JOURNEY_FILE error; callers decide whether to Recover.
func (s *Store) Load(language string) (*Record, error) {
	path := s.Path(language)

	data, err := retryTransient(func() ([]byte, error) { return os.ReadFile(path) })
	if err != nil {
		if os.IsNotExist(err) {
			return NewRecord(language), nil
		}
		return nil, fmt.Errorf("failed to read journey %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return NewRecord(language), errors.New(errors.CorruptJourneyFile,
			fmt.Sprintf("journey file %s cannot be parsed", path), err, nil).
			WithDetails(map[string]string{"path": path, "language": language})
	}
	if rec.Language == "" {
		rec.Language = language
	}
	return &rec, nil
}

// Recover moves an unreadable journey file aside and returns the backup path.
func (s *Store) Recover(language string) (string, error) {
	path := s.Path(language)
	stamp := s.now().UTC().Format("20060102T150405Z")

	backup := path + ".corrupt-" + stamp
	for i := 1; fileExists(backup); i++ {
		backup = fmt.Sprintf("%s.corrupt-%s-%d", path, stamp, i)
	}

	if _, err := retryTransient(func() (struct{}, error) { return struct{}{}, os.Rename(path, backup) }); err != nil {
		return "", fmt.Errorf("failed to move corrupt journey aside: %w", err)
	}
	s.logger.Warn("Corrupt journey moved aside", "language", language, "backup", backup)
	return backup, nil
}

// Save writes the record atomically: temp file in the same directory,
// fsync, rename. Any failure is a JOURNEY_WRITE_FAILED error.
func (s *Store) Save(language string, rec *Record) error {
	path := s.Path(language)
	fail := func(msg string, err error) error {
		return errors.New(errors.JourneyWriteFailed, fmt.Sprintf("%s %s", msg, path), err, nil).
			WithDetails(map[string]string{"path": path, "language": language})
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fail("failed to encode journey", err)
	}
	data = append(data, '\n')

	if _, err := paths.EnsureDir(s.dir); err != nil {
		return fail("failed to create journey directory for", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fail("failed to create temp file for", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fail("failed to write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fail("failed to sync", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fail("failed to close", err)
	}
	if _, err := retryTransient(func() (struct{}, error) { return struct{}{}, os.Rename(tmpPath, path) }); err != nil {
		cleanup()
		return fail("failed to replace", err)
	}

	s.logger.Debug("Journey saved", "language", language, "concepts", len(rec.Concepts), "sessions", len(rec.Sessions))
	return nil
}

// UpdateResult describes one load-modify-save cycle.
type UpdateResult struct {
	Previous *Record
	Current  *Record

	// Corrupt is set when the stored ledger was unreadable and replaced by
	// a fresh record; BackupPath is where the old file went.
	Corrupt    error
	BackupPath string
}

// Update loads the record for language, applies fn and saves the result.
// Updates to the same language are serialised within the process and, where
// the platform supports it, across processes. A corrupt ledger is moved
// aside and fn receives a fresh record. If fn fails nothing is saved.
func (s *Store) Update(language string, fn func(*Record) (*Record, error)) (*UpdateResult, error) {
	mu := s.languageLock(language)
	mu.Lock()
	defer mu.Unlock()

	if _, err := paths.EnsureDir(s.dir); err != nil {
		return nil, errors.New(errors.JourneyWriteFailed, "failed to create journey directory", err, nil)
	}
	lock, err := filelock.Acquire(s.Path(language) + ".lock")
	if err != nil {
		return nil, fmt.Errorf("failed to lock journey for %s: %w", language, err)
	}
	defer func() { _ = lock.Release() }()

	result := &UpdateResult{}
	prev, err := s.Load(language)
	if err != nil {
		if !errors.HasCode(err, errors.CorruptJourneyFile) {
			return nil, err
		}
		backup, rerr := s.Recover(language)
		if rerr != nil {
			return nil, rerr
		}
		result.Corrupt = err
		result.BackupPath = backup
	}
	result.Previous = prev

	next, err := fn(prev.Clone())
	if err != nil {
		return nil, err
	}
	if err := s.Save(language, next); err != nil {
		return nil, err
	}
	result.Current = next
	return result, nil
}

func (s *Store) languageLock(language string) *sync.Mutex {
	key := paths.LanguageSlug(language)
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// List returns the language slugs that have a journey file, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var langs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "journey-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		langs = append(langs, strings.TrimSuffix(strings.TrimPrefix(name, "journey-"), ".json"))
	}
	sort.Strings(langs)
	return langs, nil
}

// retryTransient runs op and retries it once when it fails with an
// interrupted or temporarily unavailable errno.
func retryTransient[T any](op func() (T, error)) (T, error) {
	v, err := op()
	if err != nil && isTransient(err) {
		v, err = op()
	}
	return v, err
}

func isTransient(err error) bool {
	return stderrors.Is(err, syscall.EINTR) ||
		stderrors.Is(err, syscall.EAGAIN) ||
		stderrors.Is(err, syscall.EBUSY)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
