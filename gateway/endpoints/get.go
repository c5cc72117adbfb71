package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

// GetHandler implements http.Handler
type GetHandler struct {
	fs *ecfs.FS
}

// NewGetHandler returns a new GetHandler
func NewGetHandler(fs *ecfs.FS) *GetHandler {
	return &GetHandler{fs: fs}
}

// setContentDisposition sets the Content-Disposition header, based on
// the content we are serving. It tells a browser if it should open
// a save dialog or display it inline (and how)
func setContentDisposition(info *ecfs.StatInfo, hdr http.Header, dispoType string) {
	hdr.Set(
		"Content-Disposition",
		fmt.Sprintf(
			"%s; filename*=UTF-8''%s",
			dispoType,
			url.QueryEscape(path.Base(info.Path)),
		),
	)
}

func (gh *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// get the file nodePath including the leading slash:
	fullURL := r.URL.EscapedPath()
	nodePath, err := url.PathUnescape(fullURL[4:])
	if err != nil {
		log.Debugf("received malformed url: %s", fullURL)
		http.Error(w, "malformed url", http.StatusBadRequest)
		return
	}

	info, err := gh.fs.Stat(r.Context(), nodePath)
	if err != nil {
		// Handle a bad nodePath more explicit:
		if ecfs.IsNoSuchFileError(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		log.Errorf("gateway: failed to stat %s: %v", nodePath, err)
		http.Error(w, "failed to stat file", http.StatusInternalServerError)
		return
	}

	if info.IsDir {
		http.Error(w, "is a directory", http.StatusBadRequest)
		return
	}

	fd, err := gh.fs.Open(r.Context(), nodePath)
	if err != nil {
		log.Errorf("gateway: failed to open %s: %v", nodePath, err)
		http.Error(w, "failed to open", http.StatusInternalServerError)
		return
	}

	defer fd.Close()

	// Peek a bit of the file to let go guess the mime type.
	// This also pays for the staging, before any header goes out.
	hdrBuf := make([]byte, 512)
	n, err := fd.Read(hdrBuf)
	if err != nil && err != io.EOF {
		log.Errorf("gateway: failed to stream %s: %v", nodePath, err)
		http.Error(w, "failed to stream", http.StatusInternalServerError)
		return
	}

	hdrBuf = hdrBuf[:n]
	if _, err := fd.Seek(0, io.SeekStart); err != nil {
		log.Errorf("gateway: failed to rewind %s: %v", nodePath, err)
		http.Error(w, "failed to stream", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	mimeType := http.DetectContentType(hdrBuf)
	hdr.Set("Content-Type", mimeType)
	hdr.Set("Content-Length", strconv.FormatInt(info.Size, 10))

	isDirectDownload := r.URL.Query().Get("direct") == "yes"

	// Set the content disposition to inline if it looks like something viewable.
	if mimeType == "application/octet-stream" || isDirectDownload {
		setContentDisposition(info, hdr, "attachment")
	} else {
		setContentDisposition(info, hdr, "inline")
	}

	if _, err := io.Copy(w, fd); err != nil {
		log.Warningf("stream failure: %v", err)
		http.Error(w, "failed to stream", http.StatusInternalServerError)
	}
}
