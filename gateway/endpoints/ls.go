package endpoints

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/observingclouds/ecgofs/ecfs"
)

// LsHandler implements http.Handler.
type LsHandler struct {
	fs *ecfs.FS
}

// NewLsHandler returns a new LsHandler
func NewLsHandler(fs *ecfs.FS) *LsHandler {
	return &LsHandler{fs: fs}
}

// LsRequest is the data that needs to be sent to this endpoint.
type LsRequest struct {
	Root      string `json:"root"`
	All       bool   `json:"all,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// StatInfo is a single node in the list response.
// It is the same as ecfs.StatInfo, but is more JSON friendly.
type StatInfo struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Owner string `json:"owner"`
	Group string `json:"group"`
	IsDir bool   `json:"is_dir"`
}

func toExternalStatInfo(info ecfs.StatInfo) *StatInfo {
	return &StatInfo{
		Path:  info.Path,
		Size:  info.Size,
		Owner: info.Owner,
		Group: info.Group,
		IsDir: info.IsDir,
	}
}

// LsResponse is the response sent back to the client.
type LsResponse struct {
	Success bool        `json:"success"`
	Files   []*StatInfo `json:"files"`
}

func (lh *LsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lsReq := &LsRequest{}
	if err := json.NewDecoder(r.Body).Decode(&lsReq); err != nil {
		jsonifyErrf(w, http.StatusBadRequest, "bad json")
		return
	}

	entries, err := lh.fs.Ls(r.Context(), lsReq.Root, ecfs.LsOptions{
		All:       lsReq.All,
		Recursive: lsReq.Recursive,
	})

	if err != nil {
		if ecfs.IsNoSuchFileError(err) {
			jsonifyErrf(w, http.StatusNotFound, "no such directory: %s", lsReq.Root)
			return
		}

		jsonifyErrf(w, http.StatusBadRequest, "failed to list %s: %v", lsReq.Root, err)
		return
	}

	files := []*StatInfo{}
	for _, entry := range entries {
		files = append(files, toExternalStatInfo(entry))
	}

	// Sort dirs before files and sort each part alphabetically
	sort.Slice(files, func(i, j int) bool {
		if files[i].IsDir != files[j].IsDir {
			return files[i].IsDir
		}

		return strings.ToLower(files[i].Path) < strings.ToLower(files[j].Path)
	})

	jsonify(w, http.StatusOK, &LsResponse{
		Success: true,
		Files:   files,
	})
}
