// Package server serves generated documents over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/generator"
)

// Documents is the part of the generator the server needs.
type Documents interface {
	Generate(ctx context.Context, req generator.Request) ([]byte, error)
	Filename(req generator.Request) string
	ListEnabledAPITypes() []string
	ListEnvironments() []string
}

type Server struct {
	docs   Documents
	prefix string
	log    zerolog.Logger
}

func New(docs Documents, prefix string, log zerolog.Logger) *Server {
	return &Server{
		docs:   docs,
		prefix: "/" + strings.Trim(prefix, "/"),
		log:    log,
	}
}

// Handler routes:
//
//	GET {prefix}/openapi.{json|yaml}
//	GET {prefix}/collection
//	GET {prefix}/workspace
//	GET {prefix}/environments
//	GET {prefix}/environments/{name}
//	GET {prefix}/api-types
//
// Document routes accept api_type (comma separated), environment, encoding and no_cache
// query parameters.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	docs := func(r chi.Router) {
		r.Get("/openapi.{encoding}", s.openapi)
		r.Get("/collection", s.document(generator.FormatCollection))
		r.Get("/workspace", s.document(generator.FormatWorkspace))
		r.Get("/environments", s.list(s.docs.ListEnvironments))
		r.Get("/environments/{name}", s.environment)
		r.Get("/api-types", s.list(s.docs.ListEnabledAPITypes))
	}
	if s.prefix == "/" {
		docs(r)
	} else {
		r.Route(s.prefix, docs)
	}
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("prefix", s.prefix).Msg("serving documentation")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.log.Info().Msg("server stopped")
	return nil
}

func (s *Server) openapi(w http.ResponseWriter, r *http.Request) {
	req := request(r, generator.FormatOpenAPI)
	req.Encoding = chi.URLParam(r, "encoding")
	s.serve(w, r, req)
}

func (s *Server) document(format generator.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serve(w, r, request(r, format))
	}
}

func (s *Server) environment(w http.ResponseWriter, r *http.Request) {
	req := request(r, generator.FormatEnvironment)
	req.Environment = chi.URLParam(r, "name")
	s.serve(w, r, req)
}

func (s *Server) list(fn func() []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, fn())
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, req generator.Request) {
	data, err := s.docs.Generate(r.Context(), req)
	if err != nil {
		status := statusOf(req, err)
		if status == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("format", string(req.Format)).Msg("generating document")
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	contentType := "application/json"
	if req.Encoding == generator.EncodingYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", s.docs.Filename(req)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// statusOf maps generator errors: malformed requests are 400, unknown filter values 422,
// an unknown environment named in the path 404.
func statusOf(req generator.Request, err error) int {
	switch {
	case errors.Is(err, generator.ErrUnknownFormat), errors.Is(err, generator.ErrUnknownEncoding):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrUnknownEnvironment) && req.Format == generator.FormatEnvironment:
		return http.StatusNotFound
	case errors.Is(err, generator.ErrUnknownAPIType), errors.Is(err, generator.ErrUnknownEnvironment):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func request(r *http.Request, format generator.Format) generator.Request {
	q := r.URL.Query()
	req := generator.Request{
		Format:      format,
		Environment: q.Get("environment"),
		Encoding:    q.Get("encoding"),
	}
	if req.Encoding == "" {
		req.Encoding = generator.EncodingJSON
	}
	for _, v := range q["api_type"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.APITypes = append(req.APITypes, t)
			}
		}
	}
	if v := q.Get("no_cache"); v != "" {
		req.NoCache, _ = strconv.ParseBool(v)
	}
	return req
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
