package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clerk/pkg/platform/sentinel"
)

// DirStore reads and writes snapshots as "<id>.json" files in one folder, the
// layout the document processors write their output in. Files named like
// "client_data_42.json" are listed under their derived id "42".
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) List(ctx context.Context) ([]string, error) {
	files, err := s.files(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DirStore) Get(ctx context.Context, id string) (Snapshot, error) {
	files, err := s.files(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	name, ok := files[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	return decodeSnapshot(id, data)
}

func (s *DirStore) Save(_ context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" || strings.ContainsAny(snapshot.ID, `/\`) {
		return fmt.Errorf("snapshot id %q: %w", snapshot.ID, sentinel.ErrInvalidInput)
	}
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, snapshot.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snapshot.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// files maps ids to file names. An exact "<id>.json" wins over a derived id.
func (s *DirStore) files(ctx context.Context) (map[string]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir: %w", err)
	}
	out := make(map[string]string, len(entries))
	derived := make(map[string]string)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		out[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = e.Name()
		derived[ClientIDFromName(e.Name())] = e.Name()
	}
	for id, name := range derived {
		if _, ok := out[id]; !ok {
			out[id] = name
		}
	}
	return out, nil
}
