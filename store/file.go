package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileStore keeps every key in one JSON object on disk and rewrites it
// atomically on each mutation.
type FileStore struct {
	mu     sync.Mutex
	path   string
	data   map[string]json.RawMessage
	closed bool
}

// NewFileStore opens (or creates) a JSON store at path. A corrupt file is
// logged and treated as empty rather than failing startup.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read store: %w", err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &fs.data); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewFileStore",
				"path":     path,
				"error":    err.Error(),
			}).Warn("Store file is not valid JSON, starting empty")
			fs.data = make(map[string]json.RawMessage)
		}
	}
	return fs, nil
}

// Get returns the value under key. Values that are not valid JSON are stored
// as base64 strings and decoded transparently.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return decodeFileValue(v), true, nil
}

// Set stores value under key and flushes the file.
func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, had := f.data[key]
	f.data[key] = encodeFileValue(value)
	if err := f.flushLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

// Delete removes key and flushes the file.
func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

// Keys lists all stored keys in no particular order.
func (f *FileStore) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close marks the store closed. Every mutation is already flushed.
func (f *FileStore) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// flushLocked writes the whole map using a temporary file + rename.
func (f *FileStore) flushLocked() error {
	out, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmpFile := f.path + ".tmp"
	if err := os.WriteFile(tmpFile, out, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary store: %w", err)
	}
	if err := os.Rename(tmpFile, f.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename store: %w", err)
	}
	return nil
}

func encodeFileValue(value []byte) json.RawMessage {
	if json.Valid(value) {
		return append(json.RawMessage(nil), value...)
	}
	quoted, _ := json.Marshal(base64.StdEncoding.EncodeToString(value))
	return append(json.RawMessage(`{"$b64":`), append(quoted, '}')...)
}

func decodeFileValue(v json.RawMessage) []byte {
	var wrapped struct {
		B64 *string `json:"$b64"`
	}
	if json.Unmarshal(v, &wrapped) == nil && wrapped.B64 != nil {
		if raw, err := base64.StdEncoding.DecodeString(*wrapped.B64); err == nil {
			return raw
		}
	}
	return append([]byte(nil), v...)
}
