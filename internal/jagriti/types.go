package jagriti

import (
	"encoding/json"
	"time"
)

// State is one entry from the portal's state-commission dropdown.
type State struct {
	StateText string `json:"state_text"`
	StateID   string `json:"state_id"`
}

// Commission is one district commission under a state.
type Commission struct {
	CommissionText string `json:"commission_text"`
	CommissionID   string `json:"commission_id"`
	StateID        string `json:"state_id"`
}

// SearchKind names one of the portal's seven case-search modes.
type SearchKind string

const (
	SearchByCaseNumber          SearchKind = "case_number"
	SearchByComplainant         SearchKind = "complainant"
	SearchByRespondent          SearchKind = "respondent"
	SearchByComplainantAdvocate SearchKind = "complainant_advocate"
	SearchByRespondentAdvocate  SearchKind = "respondent_advocate"
	SearchByIndustryType        SearchKind = "industry_type"
	SearchByJudge               SearchKind = "judge"
)

// searchTypeCodes maps each search kind to the portal's serchType code.
// The misspelling is upstream's, and part of its wire format.
var searchTypeCodes = map[SearchKind]int{
	SearchByCaseNumber:          1,
	SearchByComplainant:         2,
	SearchByRespondent:          3,
	SearchByComplainantAdvocate: 4,
	SearchByRespondentAdvocate:  5,
	SearchByIndustryType:        6,
	SearchByJudge:               7,
}

// Valid reports whether k is one of the seven supported kinds.
func (k SearchKind) Valid() bool {
	_, ok := searchTypeCodes[k]
	return ok
}

// SearchRequest carries the resolved upstream identifiers for one search call.
type SearchRequest struct {
	Kind         SearchKind
	CommissionID string
	Value        string
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int // 1-based
	PerPage      int
}

// SearchPayload is the raw result of a search call before normalization.
// Rows keep upstream field names; TotalCount is nil when the portal did not
// report one.
type SearchPayload struct {
	Rows       []map[string]any
	TotalCount *int
}

// envelope is the common JSON wrapper on the portal's service responses.
type envelope struct {
	Status     int             `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	TotalCount *int            `json:"totalCount"`
}

// dropdownRow is one option from the state or district commission dropdowns.
type dropdownRow struct {
	CommissionID     json.Number `json:"commissionId"`
	CommissionNameEn string      `json:"commissionNameEn"`
	CircuitBench     bool        `json:"circuitAdditionBench"`
	ActiveStatus     bool        `json:"activeStatus"`
}
