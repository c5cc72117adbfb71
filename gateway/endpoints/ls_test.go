package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observingclouds/ecgofs/ecfs"
	"github.com/observingclouds/ecgofs/util/testutil"
)

func TestLsEndpoint(t *testing.T) {
	ecfs.WithMockFS(t, func(fs *ecfs.FS, archiveDir string) {
		testutil.MustWriteFile(t, archiveDir+"/arch/a.nc", []byte("aaa"))
		testutil.MustWriteFile(t, archiveDir+"/arch/sub/b.nc", []byte("bb"))

		hdl := NewLsHandler(fs)
		resp := mustRun(t, hdl, "POST", "http://localhost:5000/api/v0/ls", &LsRequest{
			Root: "/arch",
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		lsResp := &LsResponse{}
		mustDecodeBody(t, resp.Body, &lsResp)

		require.True(t, lsResp.Success)
		require.Len(t, lsResp.Files, 2)

		// Dirs sort before files.
		require.Equal(t, "/arch/sub", lsResp.Files[0].Path)
		require.True(t, lsResp.Files[0].IsDir)
		require.Equal(t, "/arch/a.nc", lsResp.Files[1].Path)
		require.Equal(t, int64(3), lsResp.Files[1].Size)
	})
}

func TestLsEndpointRecursive(t *testing.T) {
	ecfs.WithMockFS(t, func(fs *ecfs.FS, archiveDir string) {
		testutil.MustWriteFile(t, archiveDir+"/arch/a.nc", []byte("aaa"))
		testutil.MustWriteFile(t, archiveDir+"/arch/sub/b.nc", []byte("bb"))

		hdl := NewLsHandler(fs)
		resp := mustRun(t, hdl, "POST", "http://localhost:5000/api/v0/ls", &LsRequest{
			Root:      "/arch",
			Recursive: true,
		})

		require.Equal(t, http.StatusOK, resp.StatusCode)

		lsResp := &LsResponse{}
		mustDecodeBody(t, resp.Body, &lsResp)
		require.Len(t, lsResp.Files, 3)
	})
}

func TestLsEndpointMissing(t *testing.T) {
	ecfs.WithMockFS(t, func(fs *ecfs.FS, archiveDir string) {
		hdl := NewLsHandler(fs)
		resp := mustRun(t, hdl, "POST", "http://localhost:5000/api/v0/ls", &LsRequest{
			Root: "/does/not/exist",
		})

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLsEndpointBadJSON(t *testing.T) {
	ecfs.WithMockFS(t, func(fs *ecfs.FS, archiveDir string) {
		hdl := NewLsHandler(fs)
		resp := mustRun(t, hdl, "POST", "http://localhost:5000/api/v0/ls", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
