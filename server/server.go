package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/agentuity/itemcache/health"
	"github.com/agentuity/itemcache/item"
	"github.com/agentuity/itemcache/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

// maxBodyBytes caps create request bodies.
const maxBodyBytes = 1 << 20

// Items is the item API the server exposes.
type Items interface {
	Read(ctx context.Context, id int64) (item.Result, error)
	Create(ctx context.Context, name, value string) (item.Item, error)
	Stats() item.Stats
}

// Server adapts Items and a health Checker to HTTP.
type Server struct {
	items   Items
	checker *health.Checker
	logger  logger.Logger
	mux     *http.ServeMux
}

// New builds the routes. checker may be nil, in which case /health only
// reports that the process is up.
func New(items Items, checker *health.Checker, log logger.Logger) *Server {
	s := &Server{
		items:   items,
		checker: checker,
		logger:  log.WithPrefix("[http]"),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /items/{id}", s.getItem)
	s.mux.HandleFunc("POST /items", s.createItem)
	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("GET /metrics", s.metrics)
	return s
}

// Handler returns the root handler with request id middleware applied.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		s.mux.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           otelhttp.NewHandler(s.Handler(), "itemcache.http"),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	res, err := s.items.Read(r.Context(), id)
	if err != nil {
		s.writeItemError(w, log, err)
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.writeItemError(w, log, err)
		return
	}
	etag, err := itemETag(res.Item)
	if err != nil {
		s.writeItemError(w, log, err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// itemETag hashes the item only; the source changes from read to read.
func itemETag(it item.Item) (string, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return "", err
	}
	return `"` + strconv.FormatUint(xxhash.Sum64(data), 16) + `"`, nil
}

type createRequest struct {
	Name  *string `json:"name"`
	Value string  `json:"value"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == nil || *req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.items.Create(r.Context(), *req.Name, req.Value)
	if err != nil {
		s.writeItemError(w, log, err)
		return
	}
	w.Header().Set("Location", "/items/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusOK)})
		return
	}
	report := s.checker.Check(r.Context())
	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.items.Stats())
}

func (s *Server) requestLogger(r *http.Request) logger.Logger {
	return logger.WithKV(s.logger, "request_id", RequestID(r.Context()))
}

func (s *Server) writeItemError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case item.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case item.IsNotFound(err):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		log.Error("request failed: %s", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	writeRaw(w, status, body)
}
