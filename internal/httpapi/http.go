package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/cache"
	"analytics_framework/internal/config"
	"analytics_framework/internal/metrics"
	"analytics_framework/internal/store"
)

// Router builds HTTP handlers for the analytics read API and ops surface.
type Router struct {
	cfg     config.Config
	store   *store.Store
	runner  *analytics.Runner
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewRouter(cfg config.Config, st *store.Store, runner *analytics.Runner, c *cache.Cache, m *metrics.Metrics) *Router {
	return &Router{cfg: cfg, store: st, runner: runner, cache: c, metrics: m}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/analytics/summary", r.summary)
	mux.HandleFunc("/api/analytics/daily-trend", r.dailyTrend)
	mux.HandleFunc("/api/analytics/user-breakdown", r.userBreakdown)
	mux.HandleFunc("/api/analytics/chats", r.chats)
	mux.HandleFunc("/api/analytics/runs", r.runs)
	mux.HandleFunc("/api/analytics/process", r.process)
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/metrics", r.opsMetrics)
}

func (r *Router) summary(w http.ResponseWriter, req *http.Request) {
	if v, ok := r.cache.Get("summary"); ok {
		respondJSON(w, v)
		return
	}
	totals, err := r.store.Summary(req.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	r.cache.Set("summary", totals)
	respondJSON(w, totals)
}

func (r *Router) dailyTrend(w http.ResponseWriter, req *http.Request) {
	days := queryInt(req, "days", 30)
	key := fmt.Sprintf("trend:%d", days)
	if v, ok := r.cache.Get(key); ok {
		respondJSON(w, v)
		return
	}
	trend, err := r.store.DailyTrend(req.Context(), days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := map[string]any{"days": days, "trend": trend}
	r.cache.Set(key, payload)
	respondJSON(w, payload)
}

func (r *Router) userBreakdown(w http.ResponseWriter, req *http.Request) {
	limit := queryInt(req, "limit", 20)
	key := fmt.Sprintf("users:%d", limit)
	if v, ok := r.cache.Get(key); ok {
		respondJSON(w, v)
		return
	}
	users, err := r.store.UserBreakdown(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := map[string]any{"users": users}
	r.cache.Set(key, payload)
	respondJSON(w, payload)
}

func (r *Router) chats(w http.ResponseWriter, req *http.Request) {
	limit := queryInt(req, "limit", 50)
	offset := queryInt(req, "offset", 0)
	list, err := r.store.ListAnalyses(req.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"analyses": list})
}

func (r *Router) runs(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListRuns(req.Context(), queryInt(req, "limit", 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"runs": list, "active": r.runner.Active()})
}

// process triggers a batch run for a target date. The run executes inline on
// the request; a concurrent run answers 409 without touching the log.
func (r *Router) process(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		TargetDate string `json:"target_date"`
	}
	if req.Body != nil {
		// A missing or empty body means "process yesterday".
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	if body.TargetDate == "" {
		body.TargetDate = time.Now().UTC().AddDate(0, 0, -1).Format(analytics.DateLayout)
	}
	if _, err := time.Parse(analytics.DateLayout, body.TargetDate); err != nil {
		http.Error(w, "target_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := r.runner.Run(req.Context(), body.TargetDate)
	if errors.Is(err, analytics.ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(result)
		return
	}
	respondJSON(w, result)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) opsMetrics(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, r.metrics.Snapshot())
}

func queryInt(req *http.Request, name string, def int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
