// Package jsonfile stores each namespace as one indented JSON object on disk.
//
// Files are read permissively: a missing file is an empty namespace and a
// corrupt file is moved aside to <file>.corrupt and treated as empty. Every
// write replaces the whole file through a temp file, fsync and rename, so a
// crash leaves either the old or the new document.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/utof/debtds/internal/infra/storage"
)

// Store is a storage.KVStore over a directory of JSON files.
type Store struct {
	dir  string
	mu   sync.Mutex
	docs map[string]map[string]json.RawMessage
}

var _ storage.KVStore = (*Store)(nil)

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Store{
		dir:  dir,
		docs: make(map[string]map[string]json.RawMessage),
	}, nil
}

// Path returns the file backing a namespace.
func (s *Store) Path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}

func (s *Store) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read(namespace)
	s.docs[namespace] = doc

	out := make(map[string][]byte, len(doc))
	for k, v := range doc {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, namespace string, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc(namespace)
	for k, v := range entries {
		if !json.Valid(v) {
			return fmt.Errorf("invalid json for key %q", k)
		}
		doc[k] = append(json.RawMessage(nil), v...)
	}
	return s.write(namespace, doc)
}

func (s *Store) Delete(ctx context.Context, namespace string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc(namespace)
	for _, k := range keys {
		delete(doc, k)
	}
	return s.write(namespace, doc)
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) doc(namespace string) map[string]json.RawMessage {
	doc, ok := s.docs[namespace]
	if !ok {
		doc = s.read(namespace)
		s.docs[namespace] = doc
	}
	return doc
}

func (s *Store) read(namespace string) map[string]json.RawMessage {
	path := s.Path(namespace)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("Cache file not found, starting empty", "file", path)
		return make(map[string]json.RawMessage)
	}
	if err != nil {
		slog.Warn("Could not read cache file, starting empty", "file", path, "error", err)
		return make(map[string]json.RawMessage)
	}

	doc := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(data)) == 0 {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Could not parse cache file, starting empty", "file", path, "error", err)
		if err := os.Rename(path, path+".corrupt"); err != nil {
			slog.Warn("Could not move corrupt cache file aside", "file", path, "error", err)
		}
		return make(map[string]json.RawMessage)
	}
	for k, v := range doc {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			doc[k] = buf.Bytes()
		}
	}
	slog.Info("Loaded cache file", "file", path, "entries", len(doc))
	return doc
}

func (s *Store) write(namespace string, doc map[string]json.RawMessage) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", namespace, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+namespace+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(namespace)); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", s.Path(namespace), err)
	}
	return nil
}
