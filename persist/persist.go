// Package persist stores finished universes and characters.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

var ErrNotFound = errors.New("entity not found")

// Repository is the create/update collaborator of the creation flow.
type Repository interface {
	CreateEntity(ctx context.Context, draft *entity.Draft) (string, error)
	// UpdateEntity applies a JSON merge patch to the stored document.
	UpdateEntity(ctx context.Context, id string, patch []byte) error
	GetUniverse(ctx context.Context, id string) (*entity.Universe, error)
	ListUniverses(ctx context.Context) ([]*entity.Universe, error)
}

// MergePatch returns the merge patch that turns before into after.
func MergePatch(before, after *entity.Draft) ([]byte, error) {
	from, err := before.Document()
	if err != nil {
		return nil, fmt.Errorf("encode stored draft: %w", err)
	}
	to, err := after.Document()
	if err != nil {
		return nil, fmt.Errorf("encode current draft: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(from, to)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	return patch, nil
}

// IsEmptyPatch reports whether patch changes nothing.
func IsEmptyPatch(patch []byte) bool {
	return len(patch) == 0 || string(patch) == "{}"
}

func decodeUniverse(id string, doc []byte) (*entity.Universe, error) {
	var u entity.Universe
	if err := sonic.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode universe %s: %w", id, err)
	}
	u.ID = id
	return &u, nil
}

type record struct {
	target    types.TargetType
	doc       []byte
	createdAt time.Time
}

// MemoryRepository keeps documents in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*record
	newID   func() string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]*record{}, newID: uuid.NewString}
}

func (r *MemoryRepository) CreateEntity(ctx context.Context, draft *entity.Draft) (string, error) {
	if draft == nil {
		return "", errors.New("draft is required")
	}
	doc, err := draft.Document()
	if err != nil {
		return "", err
	}
	id := r.newID()
	r.mu.Lock()
	r.records[id] = &record{target: draft.Target, doc: doc, createdAt: time.Now()}
	r.mu.Unlock()
	return id, nil
}

func (r *MemoryRepository) UpdateEntity(ctx context.Context, id string, patch []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if IsEmptyPatch(patch) {
		return nil
	}
	doc, err := jsonpatch.MergePatch(rec.doc, patch)
	if err != nil {
		return fmt.Errorf("apply merge patch to %s: %w", id, err)
	}
	rec.doc = doc
	return nil
}

func (r *MemoryRepository) GetUniverse(ctx context.Context, id string) (*entity.Universe, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok || rec.target != types.TargetUniverse {
		return nil, fmt.Errorf("%w: universe %s", ErrNotFound, id)
	}
	return decodeUniverse(id, rec.doc)
}

func (r *MemoryRepository) ListUniverses(ctx context.Context) ([]*entity.Universe, error) {
	type item struct {
		id  string
		rec *record
	}
	r.mu.RLock()
	items := make([]item, 0, len(r.records))
	for id, rec := range r.records {
		if rec.target == types.TargetUniverse {
			items = append(items, item{id, rec})
		}
	}
	r.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if !items[i].rec.createdAt.Equal(items[j].rec.createdAt) {
			return items[i].rec.createdAt.Before(items[j].rec.createdAt)
		}
		return items[i].id < items[j].id
	})
	out := make([]*entity.Universe, 0, len(items))
	for _, it := range items {
		u, err := decodeUniverse(it.id, it.rec.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Document returns the raw stored document of id.
func (r *MemoryRepository) Document(id string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), rec.doc...), true
}

var _ Repository = (*MemoryRepository)(nil)
