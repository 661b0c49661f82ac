package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/complykit/complykit/pkg/errors"
)

const resultExt = ".json"

// Run names may contain path separators (org/repo); flatten them for file
// names.
var unsafeNameCharRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileStore keeps run results as JSON files in a directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file store rooted at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, unsafeNameCharRe.ReplaceAllString(name, "_")+resultExt)
}

func (s *FileStore) Save(ctx context.Context, result *RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result.Normalize()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(s.path(result.Name), data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeResultNotFound, "no stored result for %q", name)
		}
		return nil, fmt.Errorf("read result: %w", err)
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result %q: %w", name, err)
	}
	if result.Analyzer != nil && result.Analyzer.Graph != nil {
		if err := result.Analyzer.Graph.Restore(); err != nil {
			return nil, fmt.Errorf("restore graph for %q: %w", name, err)
		}
	}
	return &result, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read result dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), resultExt) {
			continue
		}
		// The stored Name field is authoritative; the file name is a
		// flattened rendition of it.
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var header struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &header); err != nil || header.Name == "" {
			continue
		}
		names = append(names, header.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove result: %w", err)
	}
	return nil
}

func (s *FileStore) Close(ctx context.Context) error { return nil }

var _ Store = (*FileStore)(nil)
