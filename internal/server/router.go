package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/tracker/internal/capture"
	"github.com/loykin/tracker/internal/collector"
	"github.com/loykin/tracker/internal/delivery"
)

// DefaultUnloadGrace bounds how long POST /unload waits for queued beacons.
const DefaultUnloadGrace = 2 * time.Second

// Collector is the part of *collector.Collector the router drives.
type Collector interface {
	Observe(sig capture.Signal) error
	Flush() delivery.Outcome
	Unload(ctx context.Context) error
	Status() collector.Status
}

// Router exposes a collector to pages that forward raw signals over HTTP.
// Endpoints:
//
//	POST {basePath}/signals   body: one Signal or an array of Signals
//	POST {basePath}/flush
//	POST {basePath}/unload
//	GET  {basePath}/status
//	GET  /healthz
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	col      Collector
	basePath string

	// UnloadGrace bounds POST /unload. Zero means DefaultUnloadGrace.
	UnloadGrace time.Duration
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/tracker" results in /tracker/signals, /tracker/status.
func NewRouter(col Collector, basePath string) *Router {
	return &Router{col: col, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	group := g.Group(r.basePath)
	group.POST("/signals", r.handleSignals)
	group.POST("/flush", r.handleFlush)
	group.POST("/unload", r.handleUnload)
	group.GET("/status", r.handleStatus)
	return g
}

// NewServer starts a standalone HTTP server on addr using a router for col.
// A non-nil tlsCfg serves HTTPS; its certificates come from GetCertificate
// or Certificates.
func NewServer(addr, basePath string, col Collector, tlsCfg *tls.Config) (*http.Server, error) {
	r := NewRouter(col, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		go func() { _ = server.ServeTLS(ln, "", "") }()
	} else {
		go func() { _ = server.Serve(ln) }()
	}
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
	Index *int   `json:"index,omitempty"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type signalsResp struct {
	OK       bool `json:"ok"`
	Accepted int  `json:"accepted"`
}

type flushResp struct {
	OK      bool             `json:"ok"`
	Outcome delivery.Outcome `json:"outcome"`
}

func (r *Router) handleSignals(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "read body: " + err.Error()})
		return
	}
	sigs, err := decodeSignals(raw)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	for i, sig := range sigs {
		if err := r.col.Observe(sig); err != nil {
			idx := i
			writeJSON(c, statusFor(err), errorResp{Error: err.Error(), Index: &idx})
			return
		}
	}
	writeJSON(c, http.StatusOK, signalsResp{OK: true, Accepted: len(sigs)})
}

func (r *Router) handleFlush(c *gin.Context) {
	if st := r.col.Status(); st.Unloaded {
		writeJSON(c, http.StatusGone, errorResp{Error: collector.ErrUnloaded.Error()})
		return
	}
	writeJSON(c, http.StatusOK, flushResp{OK: true, Outcome: r.col.Flush()})
}

func (r *Router) handleUnload(c *gin.Context) {
	grace := r.UnloadGrace
	if grace <= 0 {
		grace = DefaultUnloadGrace
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), grace)
	defer cancel()
	if err := r.col.Unload(ctx); err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.col.Status())
}

// decodeSignals accepts a single object or an array of objects.
func decodeSignals(raw []byte) ([]capture.Signal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	if raw[0] == '[' {
		var sigs []capture.Signal
		if err := json.Unmarshal(raw, &sigs); err != nil {
			return nil, err
		}
		return sigs, nil
	}
	var sig capture.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, err
	}
	if sig.Kind == "" {
		return nil, fmt.Errorf("signal kind required")
	}
	return []capture.Signal{sig}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, collector.ErrUnloaded):
		return http.StatusGone
	case errors.Is(err, collector.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, capture.ErrUnknownSignal):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
