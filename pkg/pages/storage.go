package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store loads named page definitions and page lists from YAML files. Named
// pages live as <name>.yaml in the store directory. Page lists are loaded
// from explicit paths, cached, and dropped on Reload.
type Store struct {
	dir string

	mu    sync.RWMutex
	lists map[string][]map[string]any
}

// NewStore creates a page store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		lists: make(map[string][]map[string]any),
	}
}

// LoadNamed loads a stored page definition by name.
func (s *Store) LoadNamed(name string) (map[string]any, error) {
	// Prevent path traversal out of the store directory.
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid page name: %s", name)
	}

	path := filepath.Join(s.dir, name+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = os.ReadFile(filepath.Join(s.dir, name+".yml"))
	}
	if err != nil {
		return nil, fmt.Errorf("page %q not found: %w", name, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse page %q: %w", name, err)
	}
	return doc, nil
}

// LoadList loads a page list from a YAML file. The file may hold either a
// flat list of page documents or a mapping with a pages key. Results are
// cached per path until Reload.
func (s *Store) LoadList(path string) ([]map[string]any, error) {
	s.mu.RLock()
	cached, ok := s.lists[path]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page list: %w", err)
	}

	list, err := parsePageList(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page list %s: %w", path, err)
	}

	s.mu.Lock()
	s.lists[path] = list
	s.mu.Unlock()
	return list, nil
}

// Reload drops all cached page lists so the next LoadList rereads from disk.
func (s *Store) Reload() {
	s.mu.Lock()
	s.lists = make(map[string][]map[string]any)
	s.mu.Unlock()
}

func parsePageList(data []byte) ([]map[string]any, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var rawList []any
	switch t := root.(type) {
	case []any:
		rawList = t
	case map[string]any:
		inner, ok := t["pages"].([]any)
		if !ok {
			return nil, fmt.Errorf("mapping form requires a pages list")
		}
		rawList = inner
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list or a mapping with a pages key, got %T", root)
	}

	list := make([]map[string]any, 0, len(rawList))
	for i, item := range rawList {
		doc, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("page %d must be a mapping, got %T", i, item)
		}
		list = append(list, doc)
	}
	return list, nil
}
