package api

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/metrics"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/search"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/ws"
)

var startTime = time.Now()

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Dependencies carries everything the router wires together. Hub may be nil,
// which disables the /ws activity feed.
type Dependencies struct {
	RefData ReferenceData
	Search  *search.Service
	Hub     *ws.Hub
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handleHealth)
	r.Get("/", handleRoot)
	r.Get("/metrics", handleMetrics)

	meta := &MetaHandler{RefData: deps.RefData}
	r.Get("/states", meta.GetStates)
	r.Get("/commissions/{state_id}", meta.GetCommissions)

	cases := &CaseHandler{Service: deps.Search}
	for path, kind := range map[string]jagriti.SearchKind{
		"/cases/by-case-number":          jagriti.SearchByCaseNumber,
		"/cases/by-complainant":          jagriti.SearchByComplainant,
		"/cases/by-respondent":           jagriti.SearchByRespondent,
		"/cases/by-complainant-advocate": jagriti.SearchByComplainantAdvocate,
		"/cases/by-respondent-advocate":  jagriti.SearchByRespondentAdvocate,
		"/cases/by-industry-type":        jagriti.SearchByIndustryType,
		"/cases/by-judge":                jagriti.SearchByJudge,
	} {
		handler := cases.Handle(kind)
		r.Get(path, handler)
		r.Post(path, handler)
	}

	if deps.Hub != nil {
		r.Handle("/ws", &ws.Handler{Hub: deps.Hub})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   getVersion(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"name":    "Lexi Case Search API",
		"tagline": "Normalized search over the e-Jagriti consumer case portal",
		"health":  "/health",
		"endpoints": map[string]any{
			"states":      "/states",
			"commissions": "/commissions/{state_id}",
			"case_search": []string{
				"/cases/by-case-number",
				"/cases/by-complainant",
				"/cases/by-respondent",
				"/cases/by-complainant-advocate",
				"/cases/by-respondent-advocate",
				"/cases/by-industry-type",
				"/cases/by-judge",
			},
		},
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, metrics.SnapshotNow())
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
