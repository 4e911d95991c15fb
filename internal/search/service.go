// Package search orchestrates one case search end to end: validate, resolve
// reference data, call the portal, classify, normalize.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/normalize"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/ws"
)

const (
	defaultPageSize = 20
	defaultMaxSize  = 100
)

// ValidationError reports request input rejected before any upstream call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Criteria is one search request, already decoded from the transport layer.
type Criteria struct {
	Kind       jagriti.SearchKind
	State      string
	Commission string
	Value      string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PerPage    int
}

// Resolver maps display names to upstream identifiers.
type Resolver interface {
	Resolve(ctx context.Context, stateName, commissionName string) (stateID, commissionID string, err error)
}

// CaseSearcher runs a resolved search against the portal.
type CaseSearcher interface {
	SearchCases(ctx context.Context, req jagriti.SearchRequest) (*jagriti.SearchPayload, error)
}

// EventPublisher receives activity events. Implementations must not block.
type EventPublisher interface {
	Publish(event ws.Event)
}

type Option func(*Service)

// Service is the search orchestrator. Each call is independent and terminal
// in one pass; the only shared state lives behind the Resolver.
type Service struct {
	resolver        Resolver
	searcher        CaseSearcher
	events          EventPublisher
	defaultPageSize int
	maxPageSize     int
}

func NewService(resolver Resolver, searcher CaseSearcher, options ...Option) *Service {
	service := &Service{
		resolver:        resolver,
		searcher:        searcher,
		defaultPageSize: defaultPageSize,
		maxPageSize:     defaultMaxSize,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

func WithPageSizes(defaultSize, maxSize int) Option {
	return func(service *Service) {
		if defaultSize > 0 {
			service.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			service.maxPageSize = maxSize
		}
	}
}

func WithEvents(events EventPublisher) Option {
	return func(service *Service) {
		service.events = events
	}
}

// Search runs one search. Returned errors are always classified: a
// *ValidationError, *jagriti.NotFoundError, *jagriti.CaptchaError,
// *jagriti.TimeoutError, or *jagriti.UpstreamError.
func (s *Service) Search(ctx context.Context, criteria Criteria) (normalize.PagedResult, error) {
	criteria, err := s.validate(criteria)
	if err != nil {
		return normalize.PagedResult{}, err
	}

	stateID, commissionID, err := s.resolver.Resolve(ctx, criteria.State, criteria.Commission)
	if err != nil {
		return normalize.PagedResult{}, s.classified(criteria, err)
	}

	payload, err := s.searcher.SearchCases(ctx, jagriti.SearchRequest{
		Kind:         criteria.Kind,
		CommissionID: commissionID,
		Value:        criteria.Value,
		DateFrom:     criteria.DateFrom,
		DateTo:       criteria.DateTo,
		Page:         criteria.Page,
		PerPage:      criteria.PerPage,
	})
	if err != nil {
		return normalize.PagedResult{}, s.classified(criteria, err)
	}

	result := normalize.Page(criteria.Kind, payload, criteria.Page, criteria.PerPage)
	log.Printf("search: kind=%s state=%s commission=%s rows=%d total=%d", criteria.Kind, stateID, commissionID, len(result.Cases), result.TotalCount)
	s.publish(ws.Event{
		Type:       ws.EventSearchCompleted,
		SearchKind: string(criteria.Kind),
		State:      criteria.State,
		Commission: criteria.Commission,
		Count:      len(result.Cases),
	})
	return result, nil
}

func (s *Service) validate(criteria Criteria) (Criteria, error) {
	if !criteria.Kind.Valid() {
		return criteria, &ValidationError{Message: fmt.Sprintf("unsupported search kind: %s", criteria.Kind)}
	}

	criteria.State = strings.TrimSpace(criteria.State)
	criteria.Commission = strings.TrimSpace(criteria.Commission)
	criteria.Value = strings.TrimSpace(criteria.Value)

	if criteria.State == "" {
		return criteria, &ValidationError{Message: "state is required"}
	}
	if criteria.Commission == "" {
		return criteria, &ValidationError{Message: "commission is required"}
	}
	if criteria.Value == "" {
		return criteria, &ValidationError{Message: "search_value is required"}
	}

	if criteria.Page == 0 {
		criteria.Page = 1
	}
	if criteria.Page < 1 {
		return criteria, &ValidationError{Message: "page must be >= 1"}
	}
	if criteria.PerPage == 0 {
		criteria.PerPage = s.defaultPageSize
	}
	if criteria.PerPage < 1 {
		return criteria, &ValidationError{Message: "per_page must be >= 1"}
	}
	if criteria.PerPage > s.maxPageSize {
		return criteria, &ValidationError{Message: fmt.Sprintf("per_page cannot exceed %d", s.maxPageSize)}
	}

	if criteria.DateFrom != nil && criteria.DateTo != nil && criteria.DateTo.Before(*criteria.DateFrom) {
		return criteria, &ValidationError{Message: "date_to must be greater than or equal to date_from"}
	}

	return criteria, nil
}

// classified logs and publishes activity for an already-typed failure, then
// hands it back unchanged for the API layer to map.
func (s *Service) classified(criteria Criteria, err error) error {
	var captchaErr *jagriti.CaptchaError
	if errors.As(err, &captchaErr) {
		log.Printf("search: captcha encountered (kind=%s state=%s)", criteria.Kind, criteria.State)
		s.publish(ws.Event{
			Type:       ws.EventCaptchaDetected,
			SearchKind: string(criteria.Kind),
			State:      criteria.State,
			Commission: criteria.Commission,
		})
		return err
	}

	var timeoutErr *jagriti.TimeoutError
	var upstreamErr *jagriti.UpstreamError
	if errors.As(err, &timeoutErr) || errors.As(err, &upstreamErr) {
		log.Printf("search: upstream failure (kind=%s state=%s): %v", criteria.Kind, criteria.State, err)
		s.publish(ws.Event{
			Type:       ws.EventUpstreamDegraded,
			SearchKind: string(criteria.Kind),
			State:      criteria.State,
			Commission: criteria.Commission,
			Detail:     "upstream unavailable",
		})
	}
	return err
}

func (s *Service) publish(event ws.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(event)
}
