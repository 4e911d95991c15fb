package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/search"
)

const requestDateLayout = "2006-01-02"

// caseSearchRequest is the JSON body accepted by every /cases endpoint; GET
// requests carry the same fields as query parameters.
type caseSearchRequest struct {
	State       string `json:"state"`
	Commission  string `json:"commission"`
	SearchValue string `json:"search_value"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Page        int    `json:"page,omitempty"`
	PerPage     int    `json:"per_page,omitempty"`
}

// CaseHandler serves the seven /cases search endpoints.
type CaseHandler struct {
	Service *search.Service
}

// Handle returns the handler for one search kind; GET and POST share it.
func (h *CaseHandler) Handle(kind jagriti.SearchKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request caseSearchRequest
		var err error
		switch r.Method {
		case http.MethodGet:
			request, err = requestFromQuery(r)
		case http.MethodPost:
			request, err = requestFromBody(r)
		default:
			sendJSON(w, http.StatusMethodNotAllowed, errorDetail{Detail: "method not allowed"})
			return
		}
		if err != nil {
			sendJSON(w, http.StatusBadRequest, errorDetail{Detail: err.Error()})
			return
		}

		criteria, err := request.criteria(kind)
		if err != nil {
			sendJSON(w, http.StatusBadRequest, errorDetail{Detail: err.Error()})
			return
		}

		result, err := h.Service.Search(r.Context(), criteria)
		if err != nil {
			sendError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, result)
	}
}

func requestFromQuery(r *http.Request) (caseSearchRequest, error) {
	query := r.URL.Query()
	request := caseSearchRequest{
		State:       query.Get("state"),
		Commission:  query.Get("commission"),
		SearchValue: query.Get("search_value"),
		DateFrom:    query.Get("date_from"),
		DateTo:      query.Get("date_to"),
	}

	var err error
	if request.Page, err = queryInt(query.Get("page")); err != nil {
		return caseSearchRequest{}, fmt.Errorf("page must be an integer")
	}
	if request.PerPage, err = queryInt(query.Get("per_page")); err != nil {
		return caseSearchRequest{}, fmt.Errorf("per_page must be an integer")
	}
	return request, nil
}

func requestFromBody(r *http.Request) (caseSearchRequest, error) {
	var request caseSearchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		return caseSearchRequest{}, fmt.Errorf("invalid request body")
	}
	return request, nil
}

func queryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (r caseSearchRequest) criteria(kind jagriti.SearchKind) (search.Criteria, error) {
	criteria := search.Criteria{
		Kind:       kind,
		State:      r.State,
		Commission: r.Commission,
		Value:      r.SearchValue,
		Page:       r.Page,
		PerPage:    r.PerPage,
	}

	if trimmed := strings.TrimSpace(r.DateFrom); trimmed != "" {
		parsed, err := time.Parse(requestDateLayout, trimmed)
		if err != nil {
			return search.Criteria{}, fmt.Errorf("date_from must be a YYYY-MM-DD date")
		}
		criteria.DateFrom = &parsed
	}
	if trimmed := strings.TrimSpace(r.DateTo); trimmed != "" {
		parsed, err := time.Parse(requestDateLayout, trimmed)
		if err != nil {
			return search.Criteria{}, fmt.Errorf("date_to must be a YYYY-MM-DD date")
		}
		criteria.DateTo = &parsed
	}

	return criteria, nil
}
