package intake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"clerk/internal/reconcile"
	"clerk/pkg/platform/sentinel"
)

func testSnapshot(id string) Snapshot {
	return Snapshot{
		ID: id,
		Fields: reconcile.NewClientRecord(map[string]string{
			"first_name_account.pdf":  "Ana",
			"first_name_passport.png": "Ana Maria",
		}),
	}
}

// StoreContractSuite runs the same behavior checks against every file-free
// backend. Backends needing infrastructure reuse it from integration tests.
type StoreContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore()
}

func (s *StoreContractSuite) TestSaveThenGet() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, testSnapshot("42")))

	got, err := s.store.Get(ctx, "42")
	s.Require().NoError(err)
	s.Equal("42", got.ID)
	s.Equal(testSnapshot("42").Fields.Fields(), got.Fields.Fields())
}

func (s *StoreContractSuite) TestGetUnknownIsNotFound() {
	_, err := s.store.Get(context.Background(), "missing")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestListIsSorted() {
	ctx := context.Background()
	for _, id := range []string{"7", "12", "3"} {
		s.Require().NoError(s.store.Save(ctx, testSnapshot(id)))
	}

	ids, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"12", "3", "7"}, ids)
}

func (s *StoreContractSuite) TestSaveReplaces() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, testSnapshot("1")))
	replacement := Snapshot{ID: "1", Fields: reconcile.NewClientRecord(map[string]string{"email_account.pdf": "a@b.co"})}
	s.Require().NoError(s.store.Save(ctx, replacement))

	got, err := s.store.Get(ctx, "1")
	s.Require().NoError(err)
	s.Equal(map[string]string{"email_account.pdf": "a@b.co"}, got.Fields.Fields())
}

func (s *StoreContractSuite) TestEmptySnapshotIsListed() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, Snapshot{ID: "empty", Fields: reconcile.NewClientRecord(nil)}))

	ids, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Contains(ids, "empty")

	got, err := s.store.Get(ctx, "empty")
	s.Require().NoError(err)
	s.Zero(got.Fields.Len())
}

func (s *StoreContractSuite) TestSaveRequiresID() {
	err := s.store.Save(context.Background(), Snapshot{})
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() Store { return NewMemoryStore() }})
}

func TestDirStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() Store {
		store, err := NewDirStore(t.TempDir())
		require.NoError(t, err)
		return store
	}})
}

func TestDirStoreReadsProcessorOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client_data_42.json"),
		[]byte(`{"last_name_account.pdf": "Silva", "phone_number_account.pdf": null}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "client_data_42"}, ids)

	snap, err := store.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"last_name_account.pdf": "Silva"}, snap.Fields.Fields())
}

func TestDirStoreMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`[1, 2]`), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestDirStoreRejectsPathIDs(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), testSnapshot("../escape"))
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
}
