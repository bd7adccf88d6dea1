package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/masad40/next-sc/pkg/kit"
)

const maxCreateBody = 1 << 20

type Server struct {
	Store Store
	Log   *zap.Logger

	// Created counts successful creates; nil disables it.
	Created prometheus.Counter
}

// CreateResponse is the body of a successful POST /items.
type CreateResponse struct {
	Success bool `json:"success"`
	Item    Item `json:"item"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/items", s.list)
	r.Get("/items/{id}", s.get)
	r.Post("/items", s.create)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.List(r.Context())
	if err != nil {
		s.logger().Error("list items failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSONWithETag(w, r, items)
}

// get answers 200 with an empty body when nothing matches; callers treat the
// empty body as not found.
func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.logger().Error("get item failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteEmpty(w)
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeItem(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	it, err := s.Store.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
			return
		}
		s.logger().Error("create item failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	if s.Created != nil {
		s.Created.Inc()
	}
	s.logger().Info("item created", zap.Int64("id", it.ID), zap.String("name", it.Name))

	kit.WriteJSON(w, http.StatusCreated, CreateResponse{Success: true, Item: it})
}

// decodeItem accepts any JSON object. Missing fields stay zero and unknown
// fields are kept.
func decodeItem(w http.ResponseWriter, r *http.Request) (*Item, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var in Item
	if err := dec.Decode(&in); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("extra data after json object")
	}
	return &in, nil
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
