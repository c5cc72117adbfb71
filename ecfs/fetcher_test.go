package ecfs

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/observingclouds/ecgofs/cache"
	"github.com/observingclouds/ecgofs/util/testutil"
)

// cancelAwareBackend refuses copies once the context is done,
// like the real subprocess backend does.
type cancelAwareBackend struct {
	*DirBackend
}

func (cb *cancelAwareBackend) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return cb.DirBackend.Copy(ctx, src, dst)
}

func withFetcherBackend(t *testing.T, mk func(dir string) Backend, fn func(f *fetcher, c *cache.Cache, archiveDir string)) {
	archiveDir, err := ioutil.TempDir("", "ecgofs-fetcher-archive")
	require.Nil(t, err)

	cacheDir, err := ioutil.TempDir("", "ecgofs-fetcher-cache")
	require.Nil(t, err)

	defer testutil.Remover(t, archiveDir, cacheDir)

	c, err := cache.New(cacheDir, cache.PermMode(cache.DefaultPermissions), true)
	require.Nil(t, err)

	fn(newFetcher(mk(archiveDir), c, 25*time.Millisecond), c, archiveDir)
}

func withFetcher(t *testing.T, fn func(f *fetcher, c *cache.Cache, archiveDir string)) {
	withFetcherBackend(t, func(dir string) Backend {
		return NewDirBackend(dir)
	}, fn)
}

func withCancelAwareFetcher(t *testing.T, fn func(f *fetcher, c *cache.Cache, archiveDir string)) {
	withFetcherBackend(t, func(dir string) Backend {
		return &cancelAwareBackend{NewDirBackend(dir)}
	}, fn)
}

func TestFetcherCoalesce(t *testing.T) {
	withFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		ctx := context.Background()

		jobA := f.Enqueue(ctx, "/arch/x", c.LocalPath("/arch/x"))
		jobB := f.Enqueue(ctx, "/arch/x", c.LocalPath("/arch/x"))
		require.True(t, jobA == jobB)

		jobC := f.Enqueue(ctx, "/arch/y", c.LocalPath("/arch/y"))
		require.False(t, jobA == jobC)
	})
}

func TestFetcherBatch(t *testing.T) {
	withFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/x"), []byte("x"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/y"), []byte("y"))

		ctx := context.Background()
		jobX := f.Enqueue(ctx, "/arch/x", c.LocalPath("/arch/x"))
		jobY := f.Enqueue(ctx, "/arch/y", c.LocalPath("/arch/y"))

		require.Nil(t, jobX.Wait())
		require.Nil(t, jobY.Wait())

		require.True(t, c.Has("/arch/x"))
		require.True(t, c.Has("/arch/y"))
	})
}

func TestFetcherBatchFailureFailsWaiters(t *testing.T) {
	withFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		// Batches fetch in path order: /arch/0 succeeds before the
		// missing /arch/a is hit, /arch/z inherits the failure.
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/0"), []byte("0"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/z"), []byte("z"))

		ctx := context.Background()
		jobEarly := f.Enqueue(ctx, "/arch/0", c.LocalPath("/arch/0"))
		jobMissing := f.Enqueue(ctx, "/arch/a", c.LocalPath("/arch/a"))
		jobLate := f.Enqueue(ctx, "/arch/z", c.LocalPath("/arch/z"))
		f.Kick()

		require.Nil(t, jobEarly.Wait())
		require.True(t, IsNoSuchFileError(jobMissing.Wait()))
		require.NotNil(t, jobLate.Wait())

		// Files staged before the failure stay staged.
		require.True(t, c.Has("/arch/0"))
		require.False(t, c.Has("/arch/z"))
	})
}

func TestFetcherKick(t *testing.T) {
	withFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/x"), []byte("x"))

		// A kicked fetcher must not wait for the delay window.
		job := f.Enqueue(context.Background(), "/arch/x", c.LocalPath("/arch/x"))
		f.Kick()

		require.Nil(t, job.Wait())
		require.True(t, c.Has("/arch/x"))
	})
}

func TestFetcherCancelledWaiterKeepsJobAlive(t *testing.T) {
	withCancelAwareFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/x"), []byte("x"))

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		// The first opener gave up, but a second live one coalesces
		// into the same job. The fetch must still happen.
		jobA := f.Enqueue(cancelled, "/arch/x", c.LocalPath("/arch/x"))
		jobB := f.Enqueue(context.Background(), "/arch/x", c.LocalPath("/arch/x"))
		require.True(t, jobA == jobB)

		f.Kick()
		require.Nil(t, jobB.Wait())
		require.True(t, c.Has("/arch/x"))
	})
}

func TestFetcherAbandonedJobIsCancelled(t *testing.T) {
	withCancelAwareFetcher(t, func(f *fetcher, c *cache.Cache, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/x"), []byte("x"))

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		// All waiters are gone; nothing should be copied.
		job := f.Enqueue(cancelled, "/arch/x", c.LocalPath("/arch/x"))
		f.Kick()

		require.Equal(t, context.Canceled, job.Wait())
		require.False(t, c.Has("/arch/x"))
	})
}
