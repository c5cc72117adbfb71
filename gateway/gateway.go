// Package gateway is a small HTTP server that serves archive listings
// and file contents over HTTP. It is strictly read-only; anything that
// looks like a write is rejected before it reaches the archive.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/sahib/config"
	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
	"github.com/observingclouds/ecgofs/gateway/endpoints"
)

// Gateway serves archive data over HTTP. This can be used to hand out
// files to users that have no access to the site tools themselves.
type Gateway struct {
	fs       *ecfs.FS
	cfg      *config.Config
	isClosed bool

	srv *http.Server
}

// NewGateway returns a newly built gateway.
// This function does not yet start a server.
func NewGateway(fs *ecfs.FS, cfg *config.Config) *Gateway {
	return &Gateway{
		fs:       fs,
		cfg:      cfg,
		isClosed: true,
	}
}

// Stop stops the gateway gracefully.
func (gw *Gateway) Stop() error {
	if gw.isClosed {
		return nil
	}

	gw.isClosed = true

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if gw.srv != nil {
		return gw.srv.Shutdown(ctx)
	}

	return nil
}

// Start will start the gateway.
// The gateway is started in the background, this method does not block.
func (gw *Gateway) Start() {
	gw.isClosed = false

	addr := gw.cfg.String("addr")
	log.Debugf("starting gateway on %s", addr)

	router := mux.NewRouter()

	// API route definition:
	apiRouter := router.PathPrefix("/api/v0").Methods("POST").Subrouter()
	apiRouter.Handle("/ls", endpoints.NewLsHandler(gw.fs))

	// The /get endpoint might contain any path, so we have to
	// use a path prefix for the right handler to be called.
	router.PathPrefix("/get/").Handler(endpoints.NewGetHandler(gw.fs)).Methods("GET")

	// No WriteTimeout on purpose: /get might wait on a tape robot.
	gw.srv = &http.Server{
		Addr:              addr,
		Handler:           gziphandler.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       360 * time.Second,
	}

	go func() {
		if err := gw.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("serve failed: %v", err)
		}
	}()
}
