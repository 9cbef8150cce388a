package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/config"
	"github.com/getsentry/sentry-mcp-sub001/internal/dto"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/repository"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
	"github.com/getsentry/sentry-mcp-sub001/internal/translator"
	"github.com/getsentry/sentry-mcp-sub001/internal/validator"
)

// maxTranslationAttempts bounds the self-correction loop: one initial
// attempt plus exactly one retry with validation feedback.
const maxTranslationAttempts = 2

// Backend is the slice of the telemetry API the search flow uses.
type Backend interface {
	schema.AttributeAPI
	SearchEvents(ctx context.Context, org string, req sentryapi.SearchRequest) (*sentryapi.SearchResponse, error)
	GetProject(ctx context.Context, org, slug string) (*sentryapi.Project, error)
}

// BackendFactory returns a backend bound to the request's region.
type BackendFactory func(regionURL string) Backend

func NewBackendFactory(client *sentryapi.Client) BackendFactory {
	return func(regionURL string) Backend {
		return client.WithRegion(regionURL)
	}
}

type SearchService interface {
	Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error)
	History(ctx context.Context, organization string, limit int) (*dto.HistoryResponse, error)
}

type searchService struct {
	translator      translator.Translator
	backendFor      BackendFactory
	history         repository.QueryHistoryRepository
	discoveryWindow string
	sentryBaseURL   string
}

func NewSearchService(
	cfg *config.Config,
	trans translator.Translator,
	backendFor BackendFactory,
	history repository.QueryHistoryRepository,
) SearchService {
	return &searchService{
		translator:      trans,
		backendFor:      backendFor,
		history:         history,
		discoveryWindow: cfg.Discovery.StatsPeriod,
		sentryBaseURL:   cfg.Sentry.BaseURL,
	}
}

// Search translates the natural-language query, validates the candidate
// with at most one correction retry, executes it against the backend,
// and records an audit row. Translation and validation failures come
// back as user-facing responses; backend system faults as errors.
func (s *searchService) Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error) {
	start := time.Now()
	log.Info().
		Str("organization", req.OrganizationSlug).
		Str("query", req.Query).
		Msg("Processing natural language search")

	backend := s.backendFor(req.RegionURL)

	projectID := ""
	if req.ProjectSlug != "" {
		project, err := backend.GetProject(ctx, req.OrganizationSlug, req.ProjectSlug)
		if err != nil {
			var apiErr *sentryapi.APIError
			if errors.As(err, &apiErr) && apiErr.IsInputError() {
				s.record(req, "", "validation_failed", fmt.Sprintf("unknown project %q", req.ProjectSlug), start)
				return errorResponse(req.Query, fmt.Sprintf("Project %q was not found in organization %q.", req.ProjectSlug, req.OrganizationSlug)), nil
			}
			return nil, err
		}
		projectID = project.ID
	}

	// Catalogs are built once per request and shared by the initial
	// attempt and the correction retry.
	catalogs, err := s.buildCatalogs(ctx, backend, req.OrganizationSlug, projectID)
	if err != nil {
		return nil, err
	}

	var lastFailure string
	feedback := ""
	for attempt := 0; attempt < maxTranslationAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		candidate, err := s.translator.Translate(ctx, req.Query, catalogs, feedback)
		if err != nil {
			return nil, err
		}

		// The model declared the request untranslatable; retrying
		// cannot help.
		if candidate.Error != "" {
			s.record(req, "", "translation_failed", candidate.Error, start)
			return errorResponse(req.Query, "Could not translate the query: "+candidate.Error), nil
		}

		catalog, ok := catalogs[candidate.Dataset]
		if !ok {
			lastFailure = fmt.Sprintf("dataset: %q is not a valid dataset (expected errors, logs or spans)", candidate.Dataset)
			feedback = lastFailure
			continue
		}

		if verr := validator.Validate(candidate, catalog); verr != nil {
			log.Warn().
				Int("attempt", attempt+1).
				Str("violation", verr.Error()).
				Msg("Translation candidate rejected")
			lastFailure = verr.Error()
			feedback = lastFailure
			continue
		}

		searchReq := buildSearchRequest(candidate, projectID, req.EffectiveLimit())
		result, err := backend.SearchEvents(ctx, req.OrganizationSlug, searchReq)
		if err != nil {
			var apiErr *sentryapi.APIError
			if errors.As(err, &apiErr) && apiErr.IsInputError() {
				// The backend rejected the query content: shaped like a
				// validation failure so it can feed the same single
				// correction retry.
				lastFailure = "the telemetry backend rejected the query: " + apiErr.Detail
				feedback = lastFailure
				continue
			}
			s.record(req, string(candidate.Dataset), "backend_error", err.Error(), start)
			return nil, err
		}

		s.record(req, string(candidate.Dataset), "ok", "", start)
		return s.successResponse(req, candidate, searchReq, result), nil
	}

	s.record(req, "", "validation_failed", lastFailure, start)
	return errorResponse(req.Query, "The query could not be translated into a valid search: "+lastFailure), nil
}

// buildCatalogs fetches the field catalog for every dataset in the
// request scope. Discovery failures propagate: an empty catalog would
// let the model hallucinate field names undetected.
func (s *searchService) buildCatalogs(ctx context.Context, backend Backend, org, projectID string) (map[model.Dataset]*schema.Catalog, error) {
	builder := schema.NewBuilder(backend, s.discoveryWindow)
	catalogs := make(map[model.Dataset]*schema.Catalog, 3)
	for _, ds := range model.AllDatasets() {
		catalog, err := builder.Build(ctx, ds, org, projectID)
		if err != nil {
			return nil, err
		}
		catalogs[ds] = catalog
	}
	return catalogs, nil
}

func (s *searchService) successResponse(req dto.SearchRequest, candidate *model.QueryTranslation, searchReq sentryapi.SearchRequest, result *sentryapi.SearchResponse) *dto.SearchResponse {
	timeRange := model.TimeRange{
		StatsPeriod: searchReq.StatsPeriod,
		Start:       searchReq.Start,
		End:         searchReq.End,
	}
	return &dto.SearchResponse{
		OriginalQuery: req.Query,
		Dataset:       string(candidate.Dataset),
		Query:         candidate.Query,
		Fields:        searchReq.Fields,
		Sort:          searchReq.Sort,
		TimeRange:     &timeRange,
		ExplorerURL:   explorerURL(s.sentryBaseURL, req.OrganizationSlug, candidate, searchReq),
		Data:          result.Data,
	}
}

// record writes a best-effort audit row. History must never fail a
// search, so errors are logged and dropped. A fresh context bounds the
// write so a canceled request still gets its row.
func (s *searchService) record(req dto.SearchRequest, dataset, status, errMsg string, start time.Time) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rec := repository.QueryHistoryRecord{
		ID:           uuid.NewString(),
		Organization: req.OrganizationSlug,
		Query:        req.Query,
		Dataset:      dataset,
		Status:       status,
		ErrorMessage: errMsg,
		Duration:     time.Since(start),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.history.Record(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("Failed to record query history")
	}
}

func (s *searchService) History(ctx context.Context, organization string, limit int) (*dto.HistoryResponse, error) {
	records, err := s.history.ListRecent(ctx, organization, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]dto.HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = dto.HistoryEntry{
			ID:           rec.ID,
			Organization: rec.Organization,
			Query:        rec.Query,
			Dataset:      rec.Dataset,
			Status:       rec.Status,
			ErrorMessage: rec.ErrorMessage,
			DurationMS:   rec.Duration.Milliseconds(),
			CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		}
	}
	return &dto.HistoryResponse{Organization: organization, Entries: entries}, nil
}

func errorResponse(query, message string) *dto.SearchResponse {
	errMsg := message
	return &dto.SearchResponse{
		OriginalQuery: query,
		ErrorMessage:  &errMsg,
	}
}
