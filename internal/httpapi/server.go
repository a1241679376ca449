package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"classd/internal/catalog"
	"classd/internal/engine"
	"classd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Analyze(ctx context.Context, req types.AnalyzeRequest) (string, error)
	Result() (types.MatrixSnapshot, bool)
	Progress() types.ProgressResponse
	Status() types.StatusResponse
	Analyzers() types.AnalyzersResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/analyze", handleAnalyze(svc))

	r.Get("/result", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := svc.Result()
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no run has been submitted yet")
			return
		}
		writeJSON(w, snap)
	})

	r.Get("/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Progress())
	})

	r.Get("/analyzers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Analyzers())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleAnalyze accepts a batch and starts the run asynchronously.
// The run itself is bound to the server base context, not the request:
// the 202 response returns immediately while analysis proceeds.
func handleAnalyze(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		// Trim and drop blank lines before enforcing batch limits.
		lines := make([]string, 0, len(req.Lines))
		for _, l := range req.Lines {
			if t := strings.TrimSpace(l); t != "" {
				lines = append(lines, t)
			}
		}
		req.Lines = lines
		if maxLines > 0 && len(req.Lines) > maxLines {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("too many lines: %d (max %d)", len(req.Lines), maxLines))
			return
		}
		if maxLineChars > 0 {
			for i, l := range req.Lines {
				if len(l) > maxLineChars {
					writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("line %d exceeds %d characters", i+1, maxLineChars))
					return
				}
			}
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		runID, err := svc.Analyze(runBaseCtx, req)
		if err != nil {
			status, kind := http.StatusInternalServerError, ""
			switch {
			case engine.IsAlreadyRunning(err):
				status, kind = http.StatusConflict, types.ErrKindAlreadyRunning
				IncrementRejection(kind)
			case engine.IsEmptyInput(err):
				status, kind = http.StatusBadRequest, types.ErrKindEmptyInput
			case catalog.IsAnalyzerNotFound(err):
				status = http.StatusNotFound
			default:
				if he, ok := err.(HTTPError); ok {
					status = he.StatusCode()
				}
			}
			writeJSONErrorKind(w, status, err.Error(), kind)
			if lvl <= zerolog.ErrorLevel {
				z := zlog.Error().Int("status", status).Dur("dur", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Err(err).Msg("analyze rejected")
			}
			return
		}
		if lvl <= zerolog.InfoLevel {
			z := zlog.Info().Str("run", runID).Int("lines", len(req.Lines))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("analyze accepted")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.AnalyzeAccepted{RunID: runID})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
