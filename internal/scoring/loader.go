package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/clipmarket/pkg/repository"
)

// SchemaLoader caches compiled response schemas by version.
type SchemaLoader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewSchemaLoader(ctx context.Context, r repository.SchemaRepo) (*SchemaLoader, error) {
	l := &SchemaLoader{repo: r, cache: make(map[string]*jsonschema.Schema)}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns the compiled schema for version, reloading once on a miss so
// schemas added after start-up are picked up.
func (l *SchemaLoader) Get(ctx context.Context, version string) (*jsonschema.Schema, error) {
	l.mu.RLock()
	s, ok := l.cache[version]
	l.mu.RUnlock()
	if ok {
		return s, nil
	}

	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	s, ok = l.cache[version]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no schema found for version %s", version)
	}
	return s, nil
}

// Reload compiles every stored schema and swaps the cache.
func (l *SchemaLoader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(r.SchemaJSON), rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", r.Version, err)
		}
		next[r.Version] = rs
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()
	return nil
}
