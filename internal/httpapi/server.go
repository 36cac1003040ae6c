package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/domain"
	apimw "github.com/hamed0406/infiping/internal/httpapi/middleware"
	"github.com/hamed0406/infiping/internal/report"
	"github.com/hamed0406/infiping/internal/repo"
)

// Server is a read-only view of the record store. It never appends.
type Server struct {
	Logger   *zap.Logger
	Records  repo.RecordScanner
	Registry *prometheus.Registry
}

func NewServer(l *zap.Logger, records repo.RecordScanner, reg *prometheus.Registry) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Records: records, Registry: reg}
}

// Options for Router. Zero RateLimitPerMin disables rate limiting; no keys
// leaves the API open.
type Options struct {
	Keys            []string
	RateLimitPerMin int
	RateBurst       int
}

func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key"},
		MaxAge:         300,
	}))
	r.Use(apimw.RateLimit(opts.RateLimitPerMin, opts.RateBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireKey(opts.Keys))
		r.Get("/api/records", s.handleRecords)
		r.Get("/api/summary", s.handleSummary)
		if s.Registry != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
		}
	})

	return r
}

// handleRecords returns records in file order, optionally only those of one
// address and only the last `limit` of them.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	out := []domain.ProbeRecord{}
	for rec, err := range s.Records.Scan(r.Context()) {
		if err != nil {
			s.Logger.Error("records_scan_error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "scan error")
			return
		}
		if address != "" && rec.Address != address {
			continue
		}
		out = append(out, rec)
		// keep a sliding window instead of the whole file
		if limit > 0 && len(out) > 2*limit {
			out = append(out[:0], out[len(out)-limit:]...)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	writeJSON(w, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := report.Summarize(r.Context(), s.Records)
	if err != nil {
		s.Logger.Error("summary_scan_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan error")
		return
	}
	if a := r.URL.Query()["address"]; len(a) > 0 {
		summaries = report.Filter(summaries, a)
	}
	if summaries == nil {
		summaries = []report.Summary{}
	}
	writeJSON(w, summaries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
