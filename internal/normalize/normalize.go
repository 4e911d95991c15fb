// Package normalize converts raw upstream search payloads into the canonical
// case-record shape. It performs no I/O.
package normalize

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
)

// CaseRecord is the canonical case shape returned to all callers regardless
// of search kind. FilingDate is nil when the upstream date could not be
// parsed; DocumentLink is nil when the portal provided none.
type CaseRecord struct {
	CaseNumber          string  `json:"case_number"`
	CaseStage           string  `json:"case_stage"`
	FilingDate          *string `json:"filing_date"`
	Complainant         string  `json:"complainant"`
	ComplainantAdvocate string  `json:"complainant_advocate"`
	Respondent          string  `json:"respondent"`
	RespondentAdvocate  string  `json:"respondent_advocate"`
	DocumentLink        *string `json:"document_link"`
}

// PagedResult wraps one page of canonical records. TotalEstimated is set when
// the portal did not report a total and the counts are conservative bounds
// rather than exact figures.
type PagedResult struct {
	Cases          []CaseRecord `json:"cases"`
	TotalCount     int          `json:"total_count"`
	Page           int          `json:"page"`
	PerPage        int          `json:"per_page"`
	TotalPages     int          `json:"total_pages"`
	TotalEstimated bool         `json:"total_estimated,omitempty"`
}

// Canonical field names, used as keys of the alias tables.
const (
	fieldCaseNumber          = "case_number"
	fieldCaseStage           = "case_stage"
	fieldFilingDate          = "filing_date"
	fieldComplainant         = "complainant"
	fieldComplainantAdvocate = "complainant_advocate"
	fieldRespondent          = "respondent"
	fieldRespondentAdvocate  = "respondent_advocate"
	fieldDocumentLink        = "document_link"
)

// baseAliases lists the upstream field names shared by every search kind, in
// priority order.
var baseAliases = map[string][]string{
	fieldCaseNumber:          {"caseNumber", "case_number", "caseNo"},
	fieldCaseStage:           {"caseStageName", "caseStage", "stageName"},
	fieldFilingDate:          {"caseFilingDate", "dateOfFiling", "filingDate"},
	fieldComplainant:         {"complainantName", "complainant"},
	fieldComplainantAdvocate: {"complainantAdvocateName", "complainantAdvocate"},
	fieldRespondent:          {"respondentName", "respondent"},
	fieldRespondentAdvocate:  {"respondentAdvocateName", "respondentAdvocate"},
	fieldDocumentLink:        {"documentLink", "documentPath", "orderDocumentPath"},
}

// kindAliases holds per-kind deviations from baseAliases. The portal renames
// a handful of columns depending on which search mode produced the rows;
// keeping the differences in one table makes them testable instead of
// implicit.
var kindAliases = map[jagriti.SearchKind]map[string][]string{
	jagriti.SearchByComplainantAdvocate: {
		fieldComplainantAdvocate: {"advocateName", "complainantAdvocateName"},
	},
	jagriti.SearchByRespondentAdvocate: {
		fieldRespondentAdvocate: {"advocateName", "respondentAdvocateName"},
	},
	jagriti.SearchByIndustryType: {
		fieldRespondent: {"industryName", "respondentName", "respondent"},
	},
	jagriti.SearchByJudge: {
		fieldCaseStage: {"hearingStageName", "caseStageName", "caseStage"},
	},
}

// upstreamDateLayouts are the textual date formats observed in portal
// responses, tried in order.
var upstreamDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"02-01-2006",
	"02 Jan 2006",
	"2 Jan 2006",
}

const canonicalDateLayout = "2006-01-02"

// Page transforms one raw search payload into a PagedResult for the given
// 1-based page and page size. A malformed row degrades field by field; it is
// never dropped and never fails the batch.
func Page(kind jagriti.SearchKind, payload *jagriti.SearchPayload, page, perPage int) PagedResult {
	rows := payload.Rows
	if perPage > 0 && len(rows) > perPage {
		// The portal must never hand back more rows than were asked for; cap
		// the page so callers can rely on len(cases) <= per_page.
		log.Printf("normalize: upstream returned %d rows for a page of %d (kind=%s), truncating", len(rows), perPage, kind)
		rows = rows[:perPage]
	}

	records := make([]CaseRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, record(kind, row, i))
	}

	result := PagedResult{
		Cases:   records,
		Page:    page,
		PerPage: perPage,
	}

	if payload.TotalCount != nil {
		result.TotalCount = *payload.TotalCount
		result.TotalPages = ceilDiv(result.TotalCount, perPage)
		return result
	}

	// The portal did not report a total. A short page is the tail, so the
	// running count is the total; an exactly-full page means at least one
	// more page may exist and the figures are estimates.
	result.TotalCount = (page-1)*perPage + len(records)
	if len(records) < perPage {
		result.TotalPages = page
	} else {
		result.TotalPages = page + 1
		result.TotalEstimated = true
	}
	return result
}

func record(kind jagriti.SearchKind, row map[string]any, index int) CaseRecord {
	rec := CaseRecord{
		CaseNumber:          stringField(kind, row, fieldCaseNumber),
		CaseStage:           stringField(kind, row, fieldCaseStage),
		Complainant:         stringField(kind, row, fieldComplainant),
		ComplainantAdvocate: stringField(kind, row, fieldComplainantAdvocate),
		Respondent:          stringField(kind, row, fieldRespondent),
		RespondentAdvocate:  stringField(kind, row, fieldRespondentAdvocate),
	}

	if link := stringField(kind, row, fieldDocumentLink); link != "" {
		rec.DocumentLink = &link
	}

	if raw := stringField(kind, row, fieldFilingDate); raw != "" {
		if parsed, err := parseUpstreamDate(raw); err == nil {
			rec.FilingDate = &parsed
		} else {
			log.Printf("normalize: unparseable filing date %q in row %d (kind=%s), leaving null", raw, index, kind)
		}
	}

	return rec
}

// stringField resolves one canonical field against the row using the kind's
// alias table, falling back to the shared table.
func stringField(kind jagriti.SearchKind, row map[string]any, field string) string {
	if overrides, ok := kindAliases[kind]; ok {
		if aliases, ok := overrides[field]; ok {
			if value, found := lookup(row, aliases); found {
				return value
			}
			return ""
		}
	}
	if value, found := lookup(row, baseAliases[field]); found {
		return value
	}
	return ""
}

func lookup(row map[string]any, aliases []string) (string, bool) {
	for _, alias := range aliases {
		raw, ok := row[alias]
		if !ok || raw == nil {
			continue
		}
		switch value := raw.(type) {
		case string:
			return strings.TrimSpace(value), true
		case float64:
			if value == float64(int64(value)) {
				return fmt.Sprintf("%d", int64(value)), true
			}
			return fmt.Sprintf("%v", value), true
		default:
			return strings.TrimSpace(fmt.Sprintf("%v", value)), true
		}
	}
	return "", false
}

func parseUpstreamDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range upstreamDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(canonicalDateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", raw)
}

func ceilDiv(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
