package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns the HTTP query surface for s.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", s.query(ActionInfo, ""))
		r.Get("/contains/{word}", s.query(ActionContains, "word"))
		r.Get("/prefix/{prefix}", s.query(ActionPrefix, "prefix"))
		r.Get("/segment/{word}", s.query(ActionSegment, "word"))
	})
	return r
}

func (s *Server) query(action, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := Request{ID: middleware.GetReqID(r.Context()), Action: action}
		if param != "" {
			req.Query = chi.URLParam(r, param)
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse("limit must be an integer", http.StatusBadRequest))
				return
			}
			req.Limit = n
		}

		resp := s.Handle(req)
		status := http.StatusOK
		if resp.Status == StatusError {
			status = resp.Code
		}
		writeJSON(w, status, resp)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
