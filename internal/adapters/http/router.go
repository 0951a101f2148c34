package httpadapter

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/factusalud/rips-engine/internal/core/domain"
	"github.com/factusalud/rips-engine/internal/core/ports"
	"github.com/factusalud/rips-engine/internal/observability/metrics"
)

const maxUploadMemory = 32 << 20

// Router exposes the run lifecycle over HTTP: asynchronous ingestion, run
// lookup, and a synchronous generate endpoint that skips storage entirely.
type Router struct {
	ingestor  ports.RunIngestor
	runs      ports.RunReader
	generator ports.Generator
	metrics   *metrics.HTTPServerMetrics
	limiter   *rate.Limiter
	logger    *slog.Logger
	service   string
}

type RouterOptions struct {
	Metrics *metrics.HTTPServerMetrics
	// RateLimit caps accepted requests per second across all clients; zero
	// disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
	Service   string
}

func NewRouter(ingestor ports.RunIngestor, runs ports.RunReader, generator ports.Generator, options RouterOptions) *Router {
	service := options.Service
	if service == "" {
		service = "api"
	}
	var limiter *rate.Limiter
	if options.RateLimit > 0 {
		burst := options.RateBurst
		if burst <= 0 {
			burst = int(options.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimit), burst)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		ingestor:  ingestor,
		runs:      runs,
		generator: generator,
		metrics:   options.Metrics,
		limiter:   limiter,
		logger:    logger,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/runs", rt.createRun)
	mux.HandleFunc("/v1/runs/", rt.getRunByID)
	mux.HandleFunc("/v1/rips/generate", rt.generateSync)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.limiter != nil && r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			if !rt.limiter.Allow() {
				if rt.metrics != nil {
					rt.metrics.RecordRateLimited(rt.service)
				}
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	docs, closers, err := documentsFromMultipart(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer closeAll(closers)

	run, err := rt.ingestor.Ingest(r.Context(), docs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (rt *Router) getRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) generateSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	docs, closers, err := documentsFromMultipart(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer closeAll(closers)

	start := time.Now()
	result, err := rt.generator.Generate(r.Context(), docs)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordGeneration(rt.service, "/v1/rips/generate", "error", time.Since(start))
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordGeneration(rt.service, "/v1/rips/generate", "success", time.Since(start))
		rt.metrics.RecordValidationMessages(rt.service, severityCounts(result.Records.Messages))
	}
	writeJSON(w, http.StatusOK, result)
}

// documentsFromMultipart pulls the invoice/history/annex parts out of the
// request. Annex is optional; its absence is not an error.
func documentsFromMultipart(r *http.Request) (ports.RunDocuments, []multipart.File, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return ports.RunDocuments{}, nil, domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}

	var closers []multipart.File
	invoice, _, err := r.FormFile("invoice")
	if err != nil {
		return ports.RunDocuments{}, nil, domain.WrapError(domain.ErrInvalidInput, "read invoice part", err)
	}
	closers = append(closers, invoice)

	history, _, err := r.FormFile("history")
	if err != nil {
		closeAll(closers)
		return ports.RunDocuments{}, nil, domain.WrapError(domain.ErrInvalidInput, "read history part", err)
	}
	closers = append(closers, history)

	docs := ports.RunDocuments{Invoice: invoice, History: history}
	if annex, _, err := r.FormFile("annex"); err == nil {
		closers = append(closers, annex)
		docs.Annex = annex
	}
	return docs, closers, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func severityCounts(messages []domain.ValidationMessage) map[string]int {
	counts := make(map[string]int, 3)
	for _, m := range messages {
		counts[string(m.Severity)]++
	}
	return counts
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
