// Package search drives a region search: it pages through a record source,
// ranks each batch by distance and reveals results a display page at a time.
package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"terminy/appointment"
	"terminy/geo"
	"terminy/importer"
	"terminy/internal/metrics"
)

const (
	RemotePageSize      = appointment.MaxPageSize
	DisplayPageSize     = 20
	NearBottomThreshold = 5
)

type State int

const (
	StateIdle State = iota
	StateSearching
	StateDisplaying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateDisplaying:
		return "displaying"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "searching":
		*s = StateSearching
	case "displaying":
		*s = StateDisplaying
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("unknown search state %q", text)
	}
	return nil
}

// Suggester looks up service names for the benefit picker.
type Suggester interface {
	SearchServiceNames(ctx context.Context, query string) ([]string, error)
}

// DistanceResolver measures a batch against the user's location.
type DistanceResolver interface {
	Resolve(ctx context.Context, user *geo.Point, list []appointment.Appointment) appointment.Distances
}

type Config struct {
	Source    importer.RawRecordSource
	Suggester Suggester
	Resolver  DistanceResolver
	Location  geo.LocationProvider
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// Orchestrator holds the state of one user's search. Methods are safe to call
// from several goroutines; network calls run without holding the lock and a
// result is dropped when a newer request has started in the meantime.
type Orchestrator struct {
	source    importer.RawRecordSource
	suggester Suggester
	resolver  DistanceResolver
	location  geo.LocationProvider
	log       zerolog.Logger
	metrics   *metrics.Metrics

	mu          sync.Mutex
	generation  uint64
	state       State
	region      *appointment.Region
	benefit     string
	locality    string
	urgent      bool
	suggestions []string

	held          []appointment.Appointment
	distances     appointment.Distances
	displayed     int
	remotePage    int
	remoteHasNext bool
	total         *int
	hasMore       bool
	loadingMore   bool
	lastErr       error
}

// Snapshot is a copy of the orchestrator state for the presentation layer.
type Snapshot struct {
	State          State
	Region         *appointment.Region
	Benefit        string
	Locality       string
	Urgent         bool
	Suggestions    []string
	Appointments   []appointment.Ranked
	Held           int
	Total          *int
	RemotePage     int
	HasMoreResults bool
	LoadingMore    bool
	Err            error
	ErrorMessage   string
	WaitingCount   int
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		source:    cfg.Source,
		suggester: cfg.Suggester,
		resolver:  cfg.Resolver,
		location:  cfg.Location,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		distances: appointment.Distances{},
	}
}

// SelectRegion switches to a region, discarding results and filters, and
// loads the default service suggestions. value may be a code, slug or name.
func (o *Orchestrator) SelectRegion(ctx context.Context, value string) error {
	region, ok := appointment.LookupRegion(value)
	if !ok {
		return &ValidationError{Field: "region"}
	}

	o.mu.Lock()
	o.resetLocked()
	o.region = &region
	generation := o.generation
	o.mu.Unlock()

	o.log.Info().Str("region", region.Slug).Msg("region selected")

	if o.suggester == nil {
		return nil
	}
	names, err := o.suggester.SearchServiceNames(ctx, "")
	if err != nil {
		o.log.Warn().Err(err).Msg("loading service suggestions failed")
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == generation {
		o.suggestions = names
	}
	return nil
}

func (o *Orchestrator) SetBenefit(benefit string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.benefit = strings.TrimSpace(benefit)
}

func (o *Orchestrator) SetLocality(locality string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locality = strings.TrimSpace(locality)
}

func (o *Orchestrator) SetUrgent(urgent bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urgent = urgent
}

// SearchServiceNames refreshes the suggestion list for a typed query.
func (o *Orchestrator) SearchServiceNames(ctx context.Context, query string) ([]string, error) {
	if o.suggester == nil {
		return nil, nil
	}

	o.mu.Lock()
	generation := o.generation
	o.mu.Unlock()

	names, err := o.suggester.SearchServiceNames(ctx, query)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == generation {
		o.suggestions = names
	}
	return slices.Clone(names), nil
}

// Search fetches the first remote page for the current filters, ranks it
// and reveals the first display page.
func (o *Orchestrator) Search(ctx context.Context) error {
	o.mu.Lock()
	if o.region == nil {
		o.lastErr = &ValidationError{Field: "region"}
		err := o.lastErr
		o.mu.Unlock()
		return err
	}
	o.generation++
	generation := o.generation
	o.clearResultsLocked()
	o.state = StateSearching
	o.remotePage = 1
	criteria := o.criteriaLocked(1)
	o.mu.Unlock()

	o.log.Info().
		Str("region", criteria.Region).
		Str("benefit", criteria.Benefit).
		Str("locality", criteria.Locality).
		Int("case", int(criteria.CaseType)).
		Msg("search started")

	batch, distances, err := o.fetch(ctx, criteria)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != generation {
		o.log.Debug().Uint64("generation", generation).Msg("discarding superseded search result")
		return ErrSuperseded
	}
	if err != nil {
		o.state = StateFailed
		o.lastErr = err
		o.log.Warn().Err(err).Msg("search failed")
		return err
	}

	o.held = rank(batch.Appointments, distances)
	o.distances = distances
	o.remoteHasNext = batch.HasNextPage
	o.total = batch.Total
	o.displayed = min(DisplayPageSize, len(o.held))
	o.hasMore = o.remoteHasNext || len(o.held) > o.displayed
	o.state = StateDisplaying
	o.metrics.ObserveBatch(o.displayed)

	o.log.Info().
		Int("held", len(o.held)).
		Int("displayed", o.displayed).
		Bool("has_more", o.hasMore).
		Msg("search finished")
	return nil
}

// LoadMoreIfNeeded reveals the next display page when anchorID is one of the
// last rows shown. Buffered rows are revealed first; the next remote page is
// fetched only once the buffer runs out. It reports whether a load happened.
// A failed remote fetch keeps the rows already shown.
func (o *Orchestrator) LoadMoreIfNeeded(ctx context.Context, anchorID uuid.UUID) (bool, error) {
	o.mu.Lock()
	if o.state != StateDisplaying || !o.hasMore || o.loadingMore || !o.nearBottomLocked(anchorID) {
		o.mu.Unlock()
		return false, nil
	}

	want := DisplayPageSize
	want -= o.revealLocked(want)
	if want == 0 || !o.remoteHasNext {
		o.finishLoadLocked()
		o.mu.Unlock()
		return true, nil
	}

	o.loadingMore = true
	generation := o.generation
	page := o.remotePage + 1
	criteria := o.criteriaLocked(page)
	o.mu.Unlock()

	o.log.Debug().Int("page", page).Msg("fetching next remote page")
	batch, distances, err := o.fetch(ctx, criteria)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != generation {
		return false, ErrSuperseded
	}
	o.loadingMore = false
	if err != nil {
		o.lastErr = err
		o.log.Warn().Err(err).Int("page", page).Msg("loading more results failed")
		return true, err
	}

	o.remotePage = page
	o.remoteHasNext = batch.HasNextPage
	if batch.Total != nil {
		o.total = batch.Total
	}
	o.distances.Merge(distances)
	o.held = append(o.held, rank(batch.Appointments, distances)...)
	o.revealLocked(want)
	o.finishLoadLocked()
	return true, nil
}

// RefreshData drops accumulated results and searches again.
func (o *Orchestrator) RefreshData(ctx context.Context) error {
	o.mu.Lock()
	o.generation++
	o.clearResultsLocked()
	o.mu.Unlock()

	if invalidator, ok := o.source.(interface{ Invalidate() }); ok {
		invalidator.Invalidate()
	}
	return o.Search(ctx)
}

// ResetSelection returns to the initial idle state.
func (o *Orchestrator) ResetSelection() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
	o.log.Info().Msg("selection reset")
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	shown := o.held[:o.displayed]
	snapshot := Snapshot{
		State:          o.state,
		Benefit:        o.benefit,
		Locality:       o.locality,
		Urgent:         o.urgent,
		Suggestions:    slices.Clone(o.suggestions),
		Appointments:   appointment.Join(shown, o.distances),
		Held:           len(o.held),
		RemotePage:     o.remotePage,
		HasMoreResults: o.hasMore,
		LoadingMore:    o.loadingMore,
		Err:            o.lastErr,
		ErrorMessage:   Message(o.lastErr),
		WaitingCount:   appointment.Statistics(shown),
	}
	if o.region != nil {
		region := *o.region
		snapshot.Region = &region
	}
	if o.total != nil {
		total := *o.total
		snapshot.Total = &total
	}
	return snapshot
}

// FindDisplayed returns a revealed appointment by ID.
func (o *Orchestrator) FindDisplayed(id uuid.UUID) (appointment.Ranked, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.held[:o.displayed] {
		if a.ID == id {
			return appointment.Join([]appointment.Appointment{a}, o.distances)[0], true
		}
	}
	return appointment.Ranked{}, false
}

func (o *Orchestrator) fetch(ctx context.Context, criteria appointment.Criteria) (importer.Batch, appointment.Distances, error) {
	batch, err := o.source.Fetch(ctx, criteria)
	if err != nil {
		return importer.Batch{}, nil, err
	}

	var user *geo.Point
	if o.location != nil {
		user, err = o.location.Location(ctx)
		if err != nil {
			o.log.Debug().Err(err).Msg("user location unavailable")
			user = nil
		}
	}

	distances := appointment.Distances{}
	if o.resolver != nil {
		distances = o.resolver.Resolve(ctx, user, batch.Appointments)
	}
	return batch, distances, nil
}

func rank(list []appointment.Appointment, distances appointment.Distances) []appointment.Appointment {
	ranked := appointment.Join(list, distances)
	appointment.Sort(ranked)
	return appointment.Unjoin(ranked)
}

func (o *Orchestrator) criteriaLocked(page int) appointment.Criteria {
	caseType := appointment.CaseStable
	if o.urgent {
		caseType = appointment.CaseUrgent
	}
	return appointment.Criteria{
		Region:   o.region.Code,
		CaseType: caseType,
		Benefit:  o.benefit,
		Locality: o.locality,
		Page:     page,
		Limit:    RemotePageSize,
	}
}

func (o *Orchestrator) nearBottomLocked(anchorID uuid.UUID) bool {
	start := max(0, o.displayed-NearBottomThreshold)
	for _, a := range o.held[start:o.displayed] {
		if a.ID == anchorID {
			return true
		}
	}
	return false
}

// revealLocked advances the display cursor over buffered rows and returns
// how many were revealed.
func (o *Orchestrator) revealLocked(want int) int {
	n := min(want, len(o.held)-o.displayed)
	o.displayed += n
	return n
}

func (o *Orchestrator) finishLoadLocked() {
	o.hasMore = o.remoteHasNext || len(o.held) > o.displayed
	o.metrics.ObserveBatch(o.displayed)
	o.log.Debug().
		Int("held", len(o.held)).
		Int("displayed", o.displayed).
		Int("page", o.remotePage).
		Bool("has_more", o.hasMore).
		Msg("more results revealed")
}

func (o *Orchestrator) clearResultsLocked() {
	o.held = nil
	o.distances = appointment.Distances{}
	o.displayed = 0
	o.remotePage = 0
	o.remoteHasNext = false
	o.total = nil
	o.hasMore = false
	o.loadingMore = false
	o.lastErr = nil
}

func (o *Orchestrator) resetLocked() {
	o.generation++
	o.clearResultsLocked()
	o.state = StateIdle
	o.region = nil
	o.benefit = ""
	o.locality = ""
	o.urgent = false
	o.suggestions = nil
}
