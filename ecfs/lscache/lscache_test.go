package lscache

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func withStores(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		fn(t, store)
	})

	t.Run("badger", func(t *testing.T) {
		tmpDir, err := ioutil.TempDir("", "ecgofs-lscache-test")
		require.Nil(t, err)

		defer os.RemoveAll(tmpDir)

		store, err := NewBadgerStore(tmpDir)
		require.Nil(t, err)

		defer store.Close()

		fn(t, store)
	})
}

func TestGetPut(t *testing.T) {
	withStores(t, func(t *testing.T, store Store) {
		_, err := store.Get("/arch/missing")
		require.Equal(t, ErrNoSuchKey, err)

		require.Nil(t, store.Put("/arch/a", []byte("one")))
		require.Nil(t, store.Put("/arch/a", []byte("two")))

		data, err := store.Get("/arch/a")
		require.Nil(t, err)
		require.Equal(t, []byte("two"), data)
	})
}

func TestKeysSorted(t *testing.T) {
	withStores(t, func(t *testing.T, store Store) {
		require.Nil(t, store.Put("/arch/b", []byte("1")))
		require.Nil(t, store.Put("/arch/a", []byte("2")))
		require.Nil(t, store.Put("/arch/a/sub", []byte("3")))
		require.Nil(t, store.Put("/other", []byte("4")))

		keys, err := store.Keys("/arch")
		require.Nil(t, err)
		require.Equal(t, []string{"/arch/a", "/arch/a/sub", "/arch/b"}, keys)
	})
}

func TestInvalidate(t *testing.T) {
	withStores(t, func(t *testing.T, store Store) {
		require.Nil(t, store.Put("/arch/a", []byte("1")))
		require.Nil(t, store.Put("/arch/a/sub", []byte("2")))
		require.Nil(t, store.Put("/other", []byte("3")))

		require.Nil(t, store.Invalidate("/arch"))

		_, err := store.Get("/arch/a")
		require.Equal(t, ErrNoSuchKey, err)

		data, err := store.Get("/other")
		require.Nil(t, err)
		require.Equal(t, []byte("3"), data)
	})
}
