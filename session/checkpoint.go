package session

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoCheckpoint = errors.New("no checkpoint for tracking id")

const defaultNamespace = "dymensis:session"

// CheckpointStore persists session checkpoints keyed by tracking id.
type CheckpointStore struct {
	core      Cache[[]byte]
	namespace string
}

func NewCheckpointStore(core Cache[[]byte], namespace string) *CheckpointStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CheckpointStore{core: core, namespace: namespace}
}

func NewMemoryCheckpointStore() *CheckpointStore {
	return NewCheckpointStore(NewMemoryCache[[]byte](), "")
}

func (c *CheckpointStore) key(trackingID string) (string, error) {
	if trackingID == "" {
		return "", errors.New("tracking id is required")
	}
	return c.namespace + ":" + trackingID, nil
}

// Save checkpoints s under its tracking id.
func (c *CheckpointStore) Save(ctx context.Context, s *Store) error {
	key, err := c.key(s.TrackingID())
	if err != nil {
		return err
	}
	data, err := s.Checkpoint()
	if err != nil {
		return err
	}
	if err := c.core.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", key, err)
	}
	return nil
}

// Load restores the checkpoint of trackingID into s.
func (c *CheckpointStore) Load(ctx context.Context, trackingID string, s *Store) error {
	key, err := c.key(trackingID)
	if err != nil {
		return err
	}
	data, ok, err := c.core.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoCheckpoint, trackingID)
	}
	return s.Restore(data)
}

func (c *CheckpointStore) Delete(ctx context.Context, trackingID string) error {
	key, err := c.key(trackingID)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}

func (c *CheckpointStore) Exists(ctx context.Context, trackingID string) (bool, error) {
	key, err := c.key(trackingID)
	if err != nil {
		return false, err
	}
	return c.core.Exists(ctx, key)
}
