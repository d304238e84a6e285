package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"agritrace/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"badger", func(t *testing.T) Store {
			s, err := NewBadgerStore(WithMaxRetries(100))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLStore(config.StoreConfig{
				Path:       filepath.Join(t.TempDir(), "kv.db"),
				MaxRetries: 100,
			}, testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func TestGetSetDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Update(ctx, func(tx Txn) error {
			return tx.Set("batch:1", []byte(`{"id":"1"}`))
		}))

		err := s.View(ctx, func(tx Txn) error {
			v, err := tx.Get("batch:1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"1"}`, string(v))
			_, err = tx.Get("batch:2")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)

		// overwrite then delete
		require.NoError(t, s.Update(ctx, func(tx Txn) error {
			return tx.Set("batch:1", []byte(`{"id":"1","v":2}`))
		}))
		require.NoError(t, s.Update(ctx, func(tx Txn) error {
			return tx.Delete("batch:1")
		}))
		err = s.View(ctx, func(tx Txn) error {
			_, err := tx.Get("batch:1")
			return err
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestViewIsReadOnly(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		err := s.View(context.Background(), func(tx Txn) error {
			return tx.Set("k", []byte("v"))
		})
		assert.Error(t, err)
	})
}

func TestScanPrefixOrder(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		keys := []string{
			"user_batches:bob:B2", "user_batches:alice:B2", "user_batches:alice:B1",
			"user_batches:ALICE:B3", "user_batches:alicex:B4", "batch:B1",
		}
		require.NoError(t, s.Update(ctx, func(tx Txn) error {
			for _, k := range keys {
				if err := tx.Set(k, []byte(`"`+k+`"`)); err != nil {
					return err
				}
			}
			return nil
		}))

		var got []string
		require.NoError(t, s.View(ctx, func(tx Txn) error {
			entries, err := tx.Scan("user_batches:alice:")
			for _, e := range entries {
				got = append(got, e.Key)
			}
			return err
		}))
		// case-sensitive, bounded by the trailing separator, key ordered
		assert.Equal(t, []string{"user_batches:alice:B1", "user_batches:alice:B2"}, got)

		require.NoError(t, s.View(ctx, func(tx Txn) error {
			entries, err := tx.Scan("nothing:")
			assert.Empty(t, entries)
			return err
		}))
	})
}

func TestUpdateIsAtomic(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Txn) error {
			if err := tx.Set("a", []byte("1")); err != nil {
				return err
			}
			if err := tx.Set("b", []byte("2")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		require.NoError(t, s.View(ctx, func(tx Txn) error {
			entries, err := tx.Scan("")
			assert.Empty(t, entries)
			return err
		}))
	})
}

func TestConcurrentIncrementsAreSerialized(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers, rounds = 4, 5

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					err := s.Update(ctx, func(tx Txn) error {
						n := 0
						raw, err := tx.Get("counter")
						switch {
						case errors.Is(err, ErrNotFound):
						case err != nil:
							return err
						default:
							n, _ = strconv.Atoi(string(raw))
						}
						return tx.Set("counter", []byte(strconv.Itoa(n+1)))
					})
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		require.NoError(t, s.View(ctx, func(tx Txn) error {
			raw, err := tx.Get("counter")
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(workers*rounds), string(raw))
			return nil
		}))
	})
}

func TestJSONHelpers(t *testing.T) {
	s, err := NewBadgerStore()
	require.NoError(t, err)
	defer s.Close()

	type doc struct {
		ID string `json:"id"`
	}
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx Txn) error {
		for _, id := range []string{"b", "a"} {
			if err := SetJSON(tx, "doc:"+id, doc{ID: id}); err != nil {
				return err
			}
		}
		return tx.Set("doc:broken", []byte("{"))
	}))

	require.NoError(t, s.View(ctx, func(tx Txn) error {
		var d doc
		require.NoError(t, GetJSON(tx, "doc:a", &d))
		assert.Equal(t, "a", d.ID)

		_, err := ScanJSON[doc](tx, "doc:")
		var syntaxErr *json.SyntaxError
		assert.ErrorAs(t, err, &syntaxErr)
		return nil
	}))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, "batch;", prefixEnd("batch:"))
	assert.Equal(t, "b", prefixEnd("a\xff"))
	assert.Equal(t, "", prefixEnd(""))
	assert.Equal(t, "", prefixEnd("\xff\xff"))
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(config.StoreConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}

func TestOpenBadgerGcOption(t *testing.T) {
	for _, gc := range []bool{true, false} {
		t.Run(strconv.FormatBool(gc), func(t *testing.T) {
			s, err := Open(config.StoreConfig{
				Backend: BackendBadger,
				Path:    filepath.Join(t.TempDir(), "badger"),
				GC:      gc,
			}, testLogger())
			require.NoError(t, err)
			bs, ok := s.(*BadgerStore)
			require.True(t, ok)
			assert.Equal(t, gc, bs.gcTicker != nil)
			require.NoError(t, bs.Close())
			assert.Nil(t, bs.gcTicker)
		})
	}

	// an in-memory store has no value log to collect
	s, err := NewBadgerStore(WithGc(true))
	require.NoError(t, err)
	defer s.Close()
	assert.Nil(t, s.gcTicker)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
