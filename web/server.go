// Package web serves a localhost-only single-user UI and JSON API over one
// search session; it intentionally has no auth/CSRF protection in this mode.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"terminy/appointment"
	"terminy/importer"
	"terminy/nfz"
	"terminy/search"
)

const (
	maxRequestBody = 1 << 20

	minLocalityQueryLength = 2
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexPage struct {
	Regions    []RegionView
	NearBottom int
}

// Directory is the part of the NFZ API used outside the search session:
// single queue details and the localities dictionary.
type Directory interface {
	FetchQueue(ctx context.Context, id string) (nfz.Queue, error)
	FetchLocalities(ctx context.Context, province, name string, page int) (nfz.Page[string], error)
}

type ServerConfig struct {
	Orchestrator *search.Orchestrator
	// Directory refreshes appointment details and suggests localities; nil
	// serves details from the session and no locality suggestions.
	Directory Directory
	// Gatherer backs GET /metrics; nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

type Server struct {
	orchestrator *search.Orchestrator
	directory    Directory
	log          zerolog.Logger
	mux          *http.ServeMux
}

type searchRequest struct {
	Benefit  *string `json:"benefit"`
	Locality *string `json:"locality"`
	Urgent   *bool   `json:"urgent"`
}

type errorResponse struct {
	Error   string      `json:"error"`
	Results ResultsView `json:"results"`
}

func NewServer(cfg ServerConfig) http.Handler {
	server := &Server{
		orchestrator: cfg.Orchestrator,
		directory:    cfg.Directory,
		log:          cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", server.handleIndex)
	mux.HandleFunc("GET /api/regions", server.handleRegions)
	mux.HandleFunc("POST /api/region/{code}", server.handleSelectRegion)
	mux.HandleFunc("GET /api/benefits", server.handleBenefits)
	mux.HandleFunc("GET /api/localities", server.handleLocalities)
	mux.HandleFunc("POST /api/search", server.handleSearch)
	mux.HandleFunc("POST /api/more/{id}", server.handleLoadMore)
	mux.HandleFunc("POST /api/refresh", server.handleRefresh)
	mux.HandleFunc("POST /api/reset", server.handleReset)
	mux.HandleFunc("GET /api/results", server.handleResults)
	mux.HandleFunc("GET /api/appointments/{id}", server.handleAppointment)
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	server.mux = mux

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := indexPage{
		Regions:    BuildRegionViews(appointment.Regions()),
		NearBottom: search.NearBottomThreshold,
	}
	if err := indexTemplate.Execute(w, page); err != nil {
		s.log.Error().Err(err).Msg("render index page")
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildRegionViews(appointment.Regions()))
}

func (s *Server) handleSelectRegion(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.SelectRegion(r.Context(), r.PathValue("code")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResults(w)
}

func (s *Server) handleBenefits(w http.ResponseWriter, r *http.Request) {
	names, err := s.orchestrator.SearchServiceNames(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// handleLocalities suggests locality names within the selected region.
func (s *Server) handleLocalities(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if s.directory == nil || len([]rune(query)) < minLocalityQueryLength {
		writeJSON(w, http.StatusOK, names)
		return
	}

	province := ""
	if region := s.orchestrator.Snapshot().Region; region != nil {
		province = region.Code
	}
	page, err := s.directory.FetchLocalities(r.Context(), province, query, 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if page.Items != nil {
		names = page.Items
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}
	if req.Benefit != nil {
		s.orchestrator.SetBenefit(*req.Benefit)
	}
	if req.Locality != nil {
		s.orchestrator.SetLocality(*req.Locality)
	}
	if req.Urgent != nil {
		s.orchestrator.SetUrgent(*req.Urgent)
	}

	if err := s.orchestrator.Search(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResults(w)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	loaded, err := s.orchestrator.LoadMoreIfNeeded(r.Context(), id)
	if err != nil && !errors.Is(err, search.ErrSuperseded) {
		// Results stay visible; the error travels in the results view.
		s.log.Warn().Err(err).Msg("load more failed")
	}
	writeJSON(w, http.StatusOK, loadMoreView{
		Loaded:  loaded,
		Results: BuildResultsView(s.orchestrator.Snapshot()),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.RefreshData(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResults(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.ResetSelection()
	s.writeResults(w)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.writeResults(w)
}

func (s *Server) handleAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	item, ok := s.orchestrator.FindDisplayed(id)
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, BuildAppointmentView(s.refresh(r.Context(), item)))
}

// refresh reloads an API-sourced appointment from /queues/{id}. The session
// copy is served whenever the lookup fails or yields an incomplete record.
func (s *Server) refresh(ctx context.Context, item appointment.Ranked) appointment.Ranked {
	if s.directory == nil || item.SourceID == "" {
		return item
	}
	queue, err := s.directory.FetchQueue(ctx, item.SourceID)
	if err != nil {
		s.log.Warn().Err(err).Str("queue", item.SourceID).Msg("refreshing appointment failed")
		return item
	}
	fresh, ok := importer.MapQueue(queue, item.Region)
	if !ok {
		return item
	}
	fresh.ID = item.ID
	item.Appointment = fresh
	return item
}

func (s *Server) writeResults(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, BuildResultsView(s.orchestrator.Snapshot()))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{
		Error:   search.Message(err),
		Results: BuildResultsView(s.orchestrator.Snapshot()),
	})
}

func errorStatus(err error) int {
	var apiErr *nfz.Error
	switch {
	case errors.Is(err, search.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, nfz.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
