package cache

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func withCache(t *testing.T, fn func(c *Cache)) {
	tmpDir, err := ioutil.TempDir("", "ecgofs-cache-test")
	require.Nil(t, err)

	defer os.RemoveAll(tmpDir)

	c, err := New(tmpDir, PermMode(DefaultPermissions), true)
	require.Nil(t, err)

	fn(c)
}

func TestResolveDirExplicit(t *testing.T) {
	dir, err := ResolveDir("/scratch/a/b123")
	require.Nil(t, err)
	require.Equal(t, "/scratch/a/b123", dir)
}

func TestResolveDirFromEnv(t *testing.T) {
	defer os.Unsetenv("EC_CACHE")
	defer os.Unsetenv("SCRATCH")

	require.Nil(t, os.Unsetenv("EC_CACHE"))
	require.Nil(t, os.Unsetenv("SCRATCH"))

	_, err := ResolveDir("")
	require.Equal(t, ErrNoCacheDir, err)

	require.Nil(t, os.Setenv("SCRATCH", "/scratch/fallback"))
	dir, err := ResolveDir("")
	require.Nil(t, err)
	require.Equal(t, "/scratch/fallback", dir)

	require.Nil(t, os.Setenv("EC_CACHE", "/scratch/cache"))
	dir, err = ResolveDir("")
	require.Nil(t, err)
	require.Equal(t, "/scratch/cache", dir)
}

func TestPermMode(t *testing.T) {
	mode := PermMode(0o3777)
	require.Equal(t, os.FileMode(0777)|os.ModeSetgid|os.ModeSticky, mode)

	require.Equal(t, os.FileMode(0644), PermMode(0o644))
}

func TestLocalPath(t *testing.T) {
	withCache(t, func(c *Cache) {
		local := c.LocalPath("/arch/bb1203/data.nc")
		require.Equal(t, filepath.Join(c.Root(), "arch/bb1203/data.nc"), local)
	})
}

func TestHasAndFinalize(t *testing.T) {
	withCache(t, func(c *Cache) {
		require.False(t, c.Has("/arch/x"))

		local := c.LocalPath("/arch/x")
		require.Nil(t, c.EnsureParent(local))
		require.Nil(t, ioutil.WriteFile(local, []byte("data"), 0644))
		require.Nil(t, c.Finalize(local))

		require.True(t, c.Has("/arch/x"))
	})
}

func TestTouch(t *testing.T) {
	withCache(t, func(c *Cache) {
		local := c.LocalPath("/arch/x")
		require.Nil(t, c.EnsureParent(local))
		require.Nil(t, ioutil.WriteFile(local, []byte("data"), 0644))

		past := time.Now().Add(-48 * time.Hour)
		require.Nil(t, os.Chtimes(local, past, past))

		require.Nil(t, c.Touch(local))

		info, err := os.Stat(local)
		require.Nil(t, err)
		require.True(t, info.ModTime().After(past))
	})
}

func TestUsageAndClean(t *testing.T) {
	withCache(t, func(c *Cache) {
		oldFile := c.LocalPath("/arch/old")
		newFile := c.LocalPath("/arch/new")

		for _, local := range []string{oldFile, newFile} {
			require.Nil(t, c.EnsureParent(local))
			require.Nil(t, ioutil.WriteFile(local, []byte("1234"), 0644))
		}

		past := time.Now().Add(-48 * time.Hour)
		require.Nil(t, os.Chtimes(oldFile, past, past))

		usage, err := c.Usage()
		require.Nil(t, err)
		require.Equal(t, 2, usage.Files)
		require.Equal(t, uint64(8), usage.Bytes)
		require.True(t, usage.Free > 0)

		removed, err := c.Clean(24 * time.Hour)
		require.Nil(t, err)
		require.Equal(t, 1, removed)

		require.False(t, c.Has("/arch/old"))
		require.True(t, c.Has("/arch/new"))
	})
}

func TestUsageAndCleanSkipInternalDir(t *testing.T) {
	withCache(t, func(c *Cache) {
		// The persistent listing cache lives below the cache root,
		// but it is no staged file and must survive a clean.
		vlog := filepath.Join(c.Root(), InternalDirName, "lscache", "000001.vlog")
		require.Nil(t, os.MkdirAll(filepath.Dir(vlog), 0700))
		require.Nil(t, ioutil.WriteFile(vlog, []byte("vlog"), 0644))

		past := time.Now().Add(-48 * time.Hour)
		require.Nil(t, os.Chtimes(vlog, past, past))

		usage, err := c.Usage()
		require.Nil(t, err)
		require.Equal(t, 0, usage.Files)
		require.Equal(t, uint64(0), usage.Bytes)

		removed, err := c.Clean(24 * time.Hour)
		require.Nil(t, err)
		require.Equal(t, 0, removed)

		_, err = os.Stat(vlog)
		require.Nil(t, err)
	})
}
