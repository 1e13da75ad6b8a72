package leveldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addr.db")
	s, err := Open(path, "Москва", true)
	require.NoError(t, err)
	return s, path
}

func TestCreateAndRecords(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	records, err := s.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	first, err := s.Create(ctx, store.NewAddress{Street: "улица Дурова", House: "4", Lon: 37.6, Lat: 55.7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := s.Create(ctx, store.NewAddress{Street: "ул. Ленина", House: "10", Building: "2", NodeID: 77})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	_, err = s.Create(ctx, store.NewAddress{House: "1"})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	require.NoError(t, s.Close())

	reopened, err := Open(path, "Москва", false)
	require.NoError(t, err)
	defer reopened.Close()

	records, err = reopened.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.Record{first, second}, records)
}

func TestImportKeepsIDOrder(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, []index.Record{
		{ID: 120, Street: "Советский пр-т", House: "1"},
		{ID: 9, Street: "улица Дурова", House: "4"},
		{ID: 10, Street: "ул. Ленина", House: "10"},
	}))

	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int64{9, 10, 120}, []int64{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, "Москва", records[0].Locality)

	rec, err := s.Create(ctx, store.NewAddress{Street: "Варшавское ш", House: "12"})
	require.NoError(t, err)
	assert.Equal(t, int64(121), rec.ID)

	assert.ErrorIs(t, s.Import(ctx, []index.Record{{ID: -1, Street: "x"}}), store.ErrInvalidRecord)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), "Москва", false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
