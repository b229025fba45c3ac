package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/absmach/fedavg/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	db, err := storage.NewBadgerStorage(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)

	stores := map[string]storage.Storage{
		"memory": storage.NewInMemoryStorage(),
		"badger": db,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})

	return stores
}

func TestCreateGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			cases := []struct {
				desc  string
				key   string
				value []byte
				err   error
			}{
				{desc: "create new key", key: "round/1", value: []byte("model-1")},
				{desc: "create existing key", key: "round/1", value: []byte("other"), err: pkgerrors.ErrEntityExists},
				{desc: "create empty key", key: "", value: []byte("x"), err: pkgerrors.ErrEmptyKey},
			}
			for _, tc := range cases {
				err := s.Create(ctx, tc.key, tc.value)
				assert.ErrorIs(t, err, tc.err, tc.desc)
			}

			got, err := s.Get(ctx, "round/1")
			require.NoError(t, err)
			assert.Equal(t, []byte("model-1"), got)

			_, err = s.Get(ctx, "round/2")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			_, err = s.Get(ctx, "")
			assert.ErrorIs(t, err, pkgerrors.ErrEmptyKey)
		})
	}
}

func TestList(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, i := range []int{3, 0, 4, 1, 2} {
				require.NoError(t, s.Create(ctx, fmt.Sprintf("round/%02d", i), []byte{byte(i)}))
			}

			cases := []struct {
				desc   string
				offset uint64
				limit  uint64
				keys   []string
			}{
				{desc: "all", offset: 0, limit: 10, keys: []string{"round/00", "round/01", "round/02", "round/03", "round/04"}},
				{desc: "first page", offset: 0, limit: 2, keys: []string{"round/00", "round/01"}},
				{desc: "middle page", offset: 2, limit: 2, keys: []string{"round/02", "round/03"}},
				{desc: "past the end", offset: 5, limit: 2, keys: nil},
			}
			for _, tc := range cases {
				entries, total, err := s.List(ctx, tc.offset, tc.limit)
				require.NoError(t, err, tc.desc)
				assert.Equal(t, uint64(5), total, tc.desc)

				var keys []string
				for _, e := range entries {
					keys = append(keys, e.Key)
				}
				assert.Equal(t, tc.keys, keys, tc.desc)
			}

			entries, _, err := s.List(ctx, 4, 1)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, []byte{4}, entries[0].Value)
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, "k", []byte("v")))
			require.NoError(t, s.Delete(ctx, "k"))

			_, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, ""), pkgerrors.ErrEmptyKey)
		})
	}
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	value := []byte("abc")
	require.NoError(t, s.Create(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestNew(t *testing.T) {
	cases := []struct {
		desc string
		cfg  storage.Config
		err  bool
	}{
		{desc: "memory", cfg: storage.Config{Type: "memory"}},
		{desc: "badger", cfg: storage.Config{Type: "badger", BadgerPath: filepath.Join(t.TempDir(), "h")}},
		{desc: "unknown", cfg: storage.Config{Type: "postgres"}, err: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s, err := storage.New(tc.cfg)
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
