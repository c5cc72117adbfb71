package ecfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observingclouds/ecgofs/util/testutil"
)

func lsPaths(infos []StatInfo) []string {
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, info.Path)
	}

	return paths
}

func TestLs(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("aaa"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/b.nc"), []byte("bb"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/sub/c.nc"), []byte("c"))

		infos, err := fs.Ls(context.Background(), "/arch", LsOptions{})
		require.Nil(t, err)
		require.Equal(t, []string{"/arch/a.nc", "/arch/b.nc", "/arch/sub"}, lsPaths(infos))

		require.Equal(t, int64(3), infos[0].Size)
		require.False(t, infos[0].IsDir)
		require.True(t, infos[2].IsDir)
	})
}

func TestLsHidden(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/.hidden"), []byte("x"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("x"))

		infos, err := fs.Ls(context.Background(), "/arch", LsOptions{})
		require.Nil(t, err)
		require.Equal(t, []string{"/arch/a.nc"}, lsPaths(infos))

		infos, err = fs.Ls(context.Background(), "/arch", LsOptions{All: true})
		require.Nil(t, err)
		require.Equal(t, []string{"/arch/.hidden", "/arch/a.nc"}, lsPaths(infos))
	})
}

func TestLsNotFound(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		_, err := fs.Ls(context.Background(), "/nope", LsOptions{})
		require.True(t, IsNoSuchFileError(err))
	})
}

func TestLsRecursiveIsCached(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/sub/c.nc"), []byte("c"))

		infos, err := fs.Ls(context.Background(), "/arch", LsOptions{Recursive: true})
		require.Nil(t, err)
		require.Equal(
			t,
			[]string{"/arch/a.nc", "/arch/sub", "/arch/sub/c.nc"},
			lsPaths(infos),
		)

		// The archive tree goes away; cached listings must still answer.
		require.Nil(t, os.RemoveAll(filepath.Join(archiveDir, "arch")))

		infos, err = fs.Ls(context.Background(), "/arch", LsOptions{Recursive: true})
		require.Nil(t, err)
		require.Len(t, infos, 3)

		// Non-recursive listings of cached directories hit the cache too.
		infos, err = fs.Ls(context.Background(), "/arch/sub", LsOptions{})
		require.Nil(t, err)
		require.Equal(t, []string{"/arch/sub/c.nc"}, lsPaths(infos))
	})
}

func TestLsNonRecursiveIsNotCached(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))

		_, err := fs.Ls(context.Background(), "/arch", LsOptions{})
		require.Nil(t, err)

		require.Nil(t, os.RemoveAll(filepath.Join(archiveDir, "arch")))

		// Partial trees are never cached; this has to miss now.
		_, err = fs.Ls(context.Background(), "/arch", LsOptions{})
		require.True(t, IsNoSuchFileError(err))
	})
}

func TestInvalidateListings(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))

		_, err := fs.Ls(context.Background(), "/arch", LsOptions{Recursive: true})
		require.Nil(t, err)

		require.Nil(t, os.RemoveAll(filepath.Join(archiveDir, "arch")))
		require.Nil(t, fs.InvalidateListings("/arch"))

		_, err = fs.Ls(context.Background(), "/arch", LsOptions{Recursive: true})
		require.True(t, IsNoSuchFileError(err))
	})
}

func TestStat(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("abc"))

		info, err := fs.Stat(context.Background(), "/arch/a.nc")
		require.Nil(t, err)
		require.Equal(t, "/arch/a.nc", info.Path)
		require.Equal(t, int64(3), info.Size)
		require.False(t, info.IsDir)

		info, err = fs.Stat(context.Background(), "/arch")
		require.Nil(t, err)
		require.True(t, info.IsDir)

		_, err = fs.Stat(context.Background(), "/arch/missing")
		require.True(t, IsNoSuchFileError(err))
	})
}

func TestExists(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))

		require.True(t, fs.Exists(context.Background(), "/arch/a.nc"))
		require.False(t, fs.Exists(context.Background(), "/arch/missing"))
	})
}

func TestOwner(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))

		owner, err := fs.Owner(context.Background(), "/arch/a.nc")
		require.Nil(t, err)
		require.Equal(t, DirBackendOwner, owner)
	})
}

func TestECTmpPaths(t *testing.T) {
	setup := func(opts *Options) {
		opts.Scheme = SchemeECTmp
	}

	WithMockFSCustom(t, setup, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "TMP/x/data.nc"), []byte("tmp"))

		// User paths never show the /TMP prefix.
		infos, err := fs.Ls(context.Background(), "/x", LsOptions{})
		require.Nil(t, err)
		require.Equal(t, []string{"/x/data.nc"}, lsPaths(infos))

		fd, err := fs.Open(context.Background(), "/x/data.nc")
		require.Nil(t, err)

		local, err := fd.LocalPath()
		require.Nil(t, err)
		require.Equal(t, fs.Cache().LocalPath("/TMP/x/data.nc"), local)
		require.Nil(t, fd.Close())
	})
}

func TestBadScheme(t *testing.T) {
	_, err := NewFilesystem(NewDirBackend("/tmp"), Options{
		Scheme:   "ftp",
		CacheDir: "/tmp",
	})
	require.Equal(t, ErrNoSuchScheme, err)
}

func TestRetrieve(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/a.nc"), []byte("a"))
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/b.nc"), []byte("b"))

		err := fs.Retrieve(context.Background(), "/arch/a.nc", "/arch/b.nc")
		require.Nil(t, err)

		require.True(t, fs.Cache().Has("/arch/a.nc"))
		require.True(t, fs.Cache().Has("/arch/b.nc"))
	})
}

func TestRetrieveFailure(t *testing.T) {
	WithMockFS(t, func(fs *FS, archiveDir string) {
		testutil.MustWriteFile(t, filepath.Join(archiveDir, "arch/b.nc"), []byte("b"))

		err := fs.Retrieve(context.Background(), "/arch/a-missing.nc", "/arch/b.nc")
		require.NotNil(t, err)
	})
}
