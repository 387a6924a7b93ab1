package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var persistRecorder = func(operation string, duration time.Duration, success bool) {}

// RegisterPersistRecorder allows external packages to observe snapshot writes.
func RegisterPersistRecorder(recorder func(operation string, duration time.Duration, success bool)) {
	if recorder == nil {
		persistRecorder = func(string, time.Duration, bool) {}
		return
	}

	persistRecorder = recorder
}

// Load reads and decrypts the snapshot file into memory. A missing or empty
// file is the first-run case and leaves the model at its empty default. A
// payload that fails authentication is fatal: the process must not start with
// partially trusted state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if mkErr := os.MkdirAll(filepath.Dir(s.path), 0o755); mkErr != nil {
				return fmt.Errorf("create snapshot directory: %w", mkErr)
			}
			s.log.Info("no snapshot found, starting empty", slog.String("path", s.path))
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	if len(raw) == 0 {
		s.log.Info("empty snapshot, starting empty", slog.String("path", s.path))
		return nil
	}

	plaintext, err := s.cipher.Decrypt(raw)
	if err != nil {
		return fmt.Errorf("decrypt snapshot %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.st = doc.toState()

	s.log.Info("snapshot loaded",
		slog.String("path", s.path),
		slog.Int("admins", len(s.st.admins)),
		slog.Int("pending_applications", len(s.st.apps)),
		slog.Int("history_entries", len(s.st.history)),
	)

	return nil
}

// Save persists the current state outside of a mutation, e.g. on shutdown.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persistLocked("save")
}

// LastSaveError returns the error of the most recent snapshot write, or nil
// if it succeeded.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSaveErr
}

// persistLocked serializes, encrypts and atomically writes the full snapshot.
// Must be called with the store mutex held. On failure the previous on-disk
// snapshot is untouched and the error is returned to the mutating caller.
func (s *Store) persistLocked(operation string) error {
	start := time.Now()

	err := s.writeSnapshotLocked()
	persistRecorder(operation, time.Since(start), err == nil)
	s.lastSaveErr = err

	if err != nil {
		s.log.Error("snapshot persist failed",
			slog.String("operation", operation),
			slog.String("path", s.path),
			slog.Any("error", err),
		)
		return fmt.Errorf("persist snapshot: %w", err)
	}

	return nil
}

func (s *Store) writeSnapshotLocked() error {
	doc := s.st.toDocument()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	sealed, err := s.cipher.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	return atomicWrite(s.path, sealed, s.preRename)
}

// atomicWrite writes data to a same-directory temporary file, flushes it to
// storage, and renames it over path. If anything fails after the temporary
// file is created, the temporary is removed and the target file is left
// byte-for-byte unchanged. preRename is a test seam; nil in production.
func atomicWrite(path string, data []byte, preRename func() error) (err error) {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, werr := f.Write(data); werr != nil {
		_ = f.Close()
		return fmt.Errorf("write temp snapshot: %w", werr)
	}

	if serr := f.Sync(); serr != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp snapshot: %w", serr)
	}

	if cerr := f.Close(); cerr != nil {
		return fmt.Errorf("close temp snapshot: %w", cerr)
	}

	if preRename != nil {
		if herr := preRename(); herr != nil {
			return herr
		}
	}

	if rerr := os.Rename(tmp, path); rerr != nil {
		return fmt.Errorf("replace snapshot: %w", rerr)
	}

	return nil
}
