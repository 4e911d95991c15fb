package jagriti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchStatesFiltersAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, statesEndpoint, r.URL.Path)
		w.Write([]byte(`{
			"status": 200,
			"data": [
				{"commissionId": 11290000, "commissionNameEn": "KARNATAKA", "activeStatus": true},
				{"commissionId": 15290000, "commissionNameEn": "TAMIL NADU", "activeStatus": true},
				{"commissionId": 99990000, "commissionNameEn": "OLD CIRCUIT", "activeStatus": false},
				{"commissionId": 29000000, "commissionNameEn": "", "activeStatus": true},
				{"commissionId": 10290000, "commissionNameEn": "DELHI", "activeStatus": true}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	states, err := client.FetchStates(context.Background())
	require.NoError(t, err)

	require.Equal(t, []State{
		{StateText: "DELHI", StateID: "10290000"},
		{StateText: "KARNATAKA", StateID: "11290000"},
		{StateText: "TAMIL NADU", StateID: "15290000"},
	}, states)
}

func TestFetchCommissionsPassesStateID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, commissionsEndpoint, r.URL.Path)
		require.Equal(t, "11290000", r.URL.Query().Get("commissionId"))
		w.Write([]byte(`{
			"status": 200,
			"data": [
				{"commissionId": 11290525, "commissionNameEn": "Bangalore Urban", "activeStatus": true},
				{"commissionId": 11290501, "commissionNameEn": "Bangalore 1st & Rural Additional", "activeStatus": true}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	commissions, err := client.FetchCommissions(context.Background(), "11290000")
	require.NoError(t, err)

	require.Equal(t, []Commission{
		{CommissionText: "Bangalore 1st & Rural Additional", CommissionID: "11290501", StateID: "11290000"},
		{CommissionText: "Bangalore Urban", CommissionID: "11290525", StateID: "11290000"},
	}, commissions)
}

func TestFetchCommissionsRequiresStateID(t *testing.T) {
	client := newTestClient(t, "https://example.invalid")

	_, err := client.FetchCommissions(context.Background(), "  ")
	require.Error(t, err)
}

func TestSearchCasesRequestShape(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		req          SearchRequest
		wantType     int
		wantPage     float64
		wantFromDate string
		wantToDate   string
	}{
		{
			name: "case number carries date range and zero-based page",
			req: SearchRequest{
				Kind:         SearchByCaseNumber,
				CommissionID: "11290525",
				Value:        "CC/123/2025",
				DateFrom:     &from,
				DateTo:       &to,
				Page:         3,
				PerPage:      20,
			},
			wantType:     1,
			wantPage:     2,
			wantFromDate: "2025-01-01",
			wantToDate:   "2025-06-30",
		},
		{
			name: "advocate search never sends dates",
			req: SearchRequest{
				Kind:         SearchByRespondentAdvocate,
				CommissionID: "11290525",
				Value:        "Rao",
				DateFrom:     &from,
				DateTo:       &to,
				Page:         1,
				PerPage:      50,
			},
			wantType:     5,
			wantPage:     0,
			wantFromDate: "",
			wantToDate:   "",
		},
		{
			name: "judge search",
			req: SearchRequest{
				Kind:         SearchByJudge,
				CommissionID: "11290525",
				Value:        "Sharma",
				Page:         1,
				PerPage:      20,
			},
			wantType: 7,
			wantPage: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, caseSearchEndpoint, r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				w.Write([]byte(`{"status":200,"data":[],"totalCount":0}`))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.SearchCases(context.Background(), tt.req)
			require.NoError(t, err)

			require.EqualValues(t, tt.wantType, captured["serchType"])
			require.Equal(t, tt.wantPage, captured["page"])
			require.EqualValues(t, tt.req.PerPage, captured["size"])
			require.Equal(t, tt.req.CommissionID, captured["commissionId"])
			require.Equal(t, tt.req.Value, captured["serchTypeValue"])
			require.EqualValues(t, 1, captured["dateRequestType"])
			require.Equal(t, tt.wantFromDate, captured["fromDate"])
			require.Equal(t, tt.wantToDate, captured["toDate"])
			require.Equal(t, "", captured["judgeId"])
		})
	}
}

func TestSearchCasesDecodesRowsAndTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": 200,
			"totalCount": 42,
			"data": [
				{"caseNumber": "CC/1/2025", "complainantName": "A"},
				{"caseNumber": "CC/2/2025", "complainantName": "B"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	payload, err := client.SearchCases(context.Background(), SearchRequest{
		Kind:         SearchByComplainant,
		CommissionID: "11290525",
		Value:        "A",
		Page:         1,
		PerPage:      20,
	})
	require.NoError(t, err)
	require.Len(t, payload.Rows, 2)
	require.NotNil(t, payload.TotalCount)
	require.Equal(t, 42, *payload.TotalCount)
	require.Equal(t, "CC/1/2025", payload.Rows[0]["caseNumber"])
}

func TestSearchCasesNullDataMeansNoRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":200,"data":null}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	payload, err := client.SearchCases(context.Background(), SearchRequest{
		Kind:         SearchByComplainant,
		CommissionID: "11290525",
		Value:        "A",
		Page:         1,
		PerPage:      20,
	})
	require.NoError(t, err)
	require.Empty(t, payload.Rows)
	require.Nil(t, payload.TotalCount)
}

func TestSearchCasesMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway error</html>`},
		{"rows not an array", `{"status":200,"data":{"oops":true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.SearchCases(context.Background(), SearchRequest{
				Kind:         SearchByComplainant,
				CommissionID: "11290525",
				Value:        "A",
				Page:         1,
				PerPage:      20,
			})

			var upstreamErr *UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
		})
	}
}

func TestSearchCasesRejectsBadInput(t *testing.T) {
	client := newTestClient(t, "https://example.invalid")

	tests := []struct {
		name string
		req  SearchRequest
	}{
		{"unknown kind", SearchRequest{Kind: "by_vibes", CommissionID: "1", Page: 1, PerPage: 20}},
		{"missing commission", SearchRequest{Kind: SearchByJudge, Page: 1, PerPage: 20}},
		{"zero page", SearchRequest{Kind: SearchByJudge, CommissionID: "1", Page: 0, PerPage: 20}},
		{"zero per page", SearchRequest{Kind: SearchByJudge, CommissionID: "1", Page: 1, PerPage: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SearchCases(context.Background(), tt.req)
			require.Error(t, err)
		})
	}
}
