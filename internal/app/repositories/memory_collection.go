package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

type memoryDoc struct {
	raw    []byte
	fields map[string]any
}

// MemoryCollection keeps documents in a map keyed by id. Documents are stored
// encoded, so callers always receive private copies and a half-finished mutation
// is never visible to other readers.
type MemoryCollection[T any] struct {
	mu      sync.RWMutex
	name    string
	idOf    func(*T) string
	indexed map[string]struct{}
	docs    map[string]memoryDoc
}

// NewMemoryCollection creates an empty collection
func NewMemoryCollection[T any](name string, idOf func(*T) string, indexes ...string) *MemoryCollection[T] {
	return &MemoryCollection[T]{
		name:    name,
		idOf:    idOf,
		indexed: indexSet(indexes),
		docs:    make(map[string]memoryDoc),
	}
}

// FindByID returns a copy of the document
func (c *MemoryCollection[T]) FindByID(_ context.Context, id string) (*T, error) {
	c.mu.RLock()
	doc, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrResourceNotFound)
	}
	return c.decode(doc)
}

// Find returns copies of every matching document ordered by id
func (c *MemoryCollection[T]) Find(_ context.Context, where Where) ([]*T, error) {
	if err := checkIndexed(c.name, c.indexed, where); err != nil {
		return nil, err
	}

	c.mu.RLock()
	ids := make([]string, 0, len(c.docs))
	for id, doc := range c.docs {
		if matches(doc.fields, where) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	matched := make([]memoryDoc, 0, len(ids))
	for _, id := range ids {
		matched = append(matched, c.docs[id])
	}
	c.mu.RUnlock()

	out := make([]*T, 0, len(matched))
	for _, doc := range matched {
		v, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert stores a new document
func (c *MemoryCollection[T]) Insert(_ context.Context, v *T) error {
	id := c.idOf(v)
	doc, err := c.encode(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrResourceAlreadyExists)
	}
	c.docs[id] = doc
	return nil
}

// Replace overwrites an existing document
func (c *MemoryCollection[T]) Replace(_ context.Context, v *T) error {
	id := c.idOf(v)
	doc, err := c.encode(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		return fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrResourceNotFound)
	}
	c.docs[id] = doc
	return nil
}

// SaveAll encodes every document first and then swaps them in under one lock
func (c *MemoryCollection[T]) SaveAll(_ context.Context, vs ...*T) error {
	encoded := make(map[string]memoryDoc, len(vs))
	for _, v := range vs {
		doc, err := c.encode(v)
		if err != nil {
			return err
		}
		encoded[c.idOf(v)] = doc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, doc := range encoded {
		c.docs[id] = doc
	}
	return nil
}

// Delete removes a document
func (c *MemoryCollection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		return fmt.Errorf("%s %q: %w", c.name, id, apperrors.ErrResourceNotFound)
	}
	delete(c.docs, id)
	return nil
}

// DeleteAll removes every listed document under one lock
func (c *MemoryCollection[T]) DeleteAll(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.docs, id)
	}
	return nil
}

func (c *MemoryCollection[T]) encode(v *T) (memoryDoc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return memoryDoc{}, fmt.Errorf("encode %s document: %w", c.name, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return memoryDoc{}, fmt.Errorf("index %s document: %w", c.name, err)
	}
	return memoryDoc{raw: raw, fields: fields}, nil
}

func (c *MemoryCollection[T]) decode(doc memoryDoc) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(doc.raw, v); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", c.name, err)
	}
	return v, nil
}

func matches(fields map[string]any, where Where) bool {
	for field, want := range where {
		got := fields[field]
		if member, ok := want.(Member); ok {
			items, isArray := got.([]any)
			if !isArray || !containsValue(items, string(member)) {
				return false
			}
			continue
		}
		if got == nil || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func containsValue(items []any, want string) bool {
	for _, item := range items {
		if fmt.Sprint(item) == want {
			return true
		}
	}
	return false
}
