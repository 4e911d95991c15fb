package jagriti

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	statesEndpoint      = "/services/report/report/getStateCommissionAndCircuitBench"
	commissionsEndpoint = "/services/report/report/getDistrictCommissionByCommissionId"
	caseSearchEndpoint  = "/services/case/caseFilingService/v2/getCaseDetailsBySearchType"

	// dateRequestType 1 filters by case filing date, the only range the
	// search surface exposes.
	dateRequestCaseFiling = 1

	upstreamDateLayout = "2006-01-02"
)

// FetchStates returns the portal's active state commissions, ordered by name.
func (c *Client) FetchStates(ctx context.Context) ([]State, error) {
	body, err := c.do(ctx, http.MethodGet, statesEndpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	rows, err := decodeDropdown(body)
	if err != nil {
		return nil, err
	}

	states := make([]State, 0, len(rows))
	for _, row := range rows {
		if !row.ActiveStatus {
			continue
		}
		name := strings.TrimSpace(row.CommissionNameEn)
		id := row.CommissionID.String()
		if name == "" || id == "" {
			continue
		}
		states = append(states, State{StateText: name, StateID: id})
	}

	sort.Slice(states, func(i, j int) bool { return states[i].StateText < states[j].StateText })
	return states, nil
}

// FetchCommissions returns the district commissions under one state.
func (c *Client) FetchCommissions(ctx context.Context, stateID string) ([]Commission, error) {
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		return nil, fmt.Errorf("state id is required")
	}

	query := url.Values{"commissionId": {stateID}}
	body, err := c.do(ctx, http.MethodGet, commissionsEndpoint, query, nil)
	if err != nil {
		return nil, err
	}

	rows, err := decodeDropdown(body)
	if err != nil {
		return nil, err
	}

	commissions := make([]Commission, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.CommissionNameEn)
		id := row.CommissionID.String()
		if name == "" || id == "" {
			continue
		}
		commissions = append(commissions, Commission{
			CommissionText: name,
			CommissionID:   id,
			StateID:        stateID,
		})
	}

	sort.Slice(commissions, func(i, j int) bool {
		return commissions[i].CommissionText < commissions[j].CommissionText
	})
	return commissions, nil
}

// SearchCases runs one search against the portal and returns the raw rows.
// Only case-number searches carry the date range; the portal ignores it for
// every other kind, so we never send it.
func (c *Client) SearchCases(ctx context.Context, req SearchRequest) (*SearchPayload, error) {
	code, ok := searchTypeCodes[req.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown search kind %q", req.Kind)
	}
	if strings.TrimSpace(req.CommissionID) == "" {
		return nil, fmt.Errorf("commission id is required")
	}
	if req.Page < 1 {
		return nil, fmt.Errorf("page must be >= 1")
	}
	if req.PerPage < 1 {
		return nil, fmt.Errorf("per_page must be >= 1")
	}

	// The portal pages from zero.
	requestBody := map[string]any{
		"commissionId":    req.CommissionID,
		"page":            req.Page - 1,
		"size":            req.PerPage,
		"serchType":       code,
		"serchTypeValue":  strings.TrimSpace(req.Value),
		"dateRequestType": dateRequestCaseFiling,
		"fromDate":        "",
		"toDate":          "",
		"judgeId":         "",
	}
	if req.Kind == SearchByCaseNumber {
		if req.DateFrom != nil {
			requestBody["fromDate"] = req.DateFrom.Format(upstreamDateLayout)
		}
		if req.DateTo != nil {
			requestBody["toDate"] = req.DateTo.Format(upstreamDateLayout)
		}
	}

	body, err := c.do(ctx, http.MethodPost, caseSearchEndpoint, nil, requestBody)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{Detail: "malformed search payload"}
	}

	payload := &SearchPayload{TotalCount: env.TotalCount}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return payload, nil
	}

	if err := json.Unmarshal(env.Data, &payload.Rows); err != nil {
		return nil, &UpstreamError{Detail: "malformed search rows"}
	}
	return payload, nil
}

func decodeDropdown(body []byte) ([]dropdownRow, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{Detail: "malformed reference payload"}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}

	var rows []dropdownRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, &UpstreamError{Detail: "malformed reference rows"}
	}
	return rows, nil
}
