package intake

import (
	"context"
	"encoding/json"
	"fmt"

	"clerk/internal/reconcile"
)

// Snapshot is one client's extracted fields as handed over by the document
// processors.
type Snapshot struct {
	ID     string
	Fields reconcile.ClientRecord
}

// Store keeps client snapshots. Implementations return sentinel.ErrNotFound
// (possibly wrapped) for unknown ids.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(s.Fields.Fields(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", s.ID, err)
	}
	return b, nil
}

func decodeSnapshot(id string, data []byte) (Snapshot, error) {
	rec, err := ParseRecord(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return Snapshot{ID: id, Fields: rec}, nil
}
