package importer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"terminy/appointment"
	"terminy/nfz"
)

// Batch is one page of mapped appointments from a record source.
type Batch struct {
	Appointments []appointment.Appointment
	Total        *int
	HasNextPage  bool
}

// RawRecordSource yields mapped appointments page by page. Criteria.Region
// holds the province code.
type RawRecordSource interface {
	Fetch(ctx context.Context, criteria appointment.Criteria) (Batch, error)
}

// APISource reads queues from the NFZ API.
type APISource struct {
	Client nfz.Client
}

func (s *APISource) Fetch(ctx context.Context, criteria appointment.Criteria) (Batch, error) {
	page, err := s.Client.FetchPage(ctx, criteria)
	if err != nil {
		return Batch{}, err
	}

	regionSlug := criteria.Region
	if region, ok := appointment.RegionByCode(criteria.Region); ok {
		regionSlug = region.Slug
	}

	batch := Batch{
		Appointments: make([]appointment.Appointment, 0, len(page.Items)),
		Total:        page.Total,
		HasNextPage:  page.HasNextPage,
	}
	for _, queue := range page.Items {
		if a, ok := MapQueue(queue, regionSlug); ok {
			batch.Appointments = append(batch.Appointments, a)
		}
	}
	return batch, nil
}

// SheetFetcher returns the raw .xlsx export of a region.
type SheetFetcher interface {
	Fetch(ctx context.Context, region appointment.Region, force bool) ([]byte, error)
}

// SheetSource serves the legacy spreadsheet export through the same paging
// contract as the API. Each region's sheet is parsed once and kept in memory
// until Invalidate is called.
type SheetSource struct {
	Fetcher SheetFetcher
	Logger  zerolog.Logger

	mu     sync.Mutex
	sheets map[string]*SheetResult
}

func (s *SheetSource) Fetch(ctx context.Context, criteria appointment.Criteria) (Batch, error) {
	criteria = criteria.Normalize()
	region, ok := appointment.LookupRegion(criteria.Region)
	if !ok {
		return Batch{}, fmt.Errorf("unknown region %q", criteria.Region)
	}

	sheet, err := s.load(ctx, region)
	if err != nil {
		return Batch{}, err
	}

	matched := filterAppointments(sheet.Appointments, criteria.Benefit, criteria.Locality)
	total := len(matched)
	start := min((criteria.Page-1)*criteria.Limit, total)
	end := min(start+criteria.Limit, total)

	return Batch{
		Appointments: slices.Clone(matched[start:end]),
		Total:        &total,
		HasNextPage:  end < total,
	}, nil
}

// DataDate reports the period of the cached sheet for a region, if loaded.
func (s *SheetSource) DataDate(region appointment.Region) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheets[region.Code].DataDate()
}

// Invalidate drops every parsed sheet so the next Fetch reloads it.
func (s *SheetSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets = nil
}

func (s *SheetSource) load(ctx context.Context, region appointment.Region) (*SheetResult, error) {
	s.mu.Lock()
	if sheet, ok := s.sheets[region.Code]; ok {
		s.mu.Unlock()
		return sheet, nil
	}
	s.mu.Unlock()

	payload, err := s.Fetcher.Fetch(ctx, region, false)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet for %s: %w", region.Slug, err)
	}
	rows, err := ReadPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("read sheet for %s: %w", region.Slug, err)
	}
	sheet, err := MapSheet(rows, region.Slug)
	if err != nil {
		return nil, fmt.Errorf("map sheet for %s: %w", region.Slug, err)
	}

	s.Logger.Info().
		Str("region", region.Slug).
		Int("appointments", len(sheet.Appointments)).
		Int("skipped", sheet.RowsSkipped).
		Str("data_date", sheet.DataDate()).
		Msg("spreadsheet loaded")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheets == nil {
		s.sheets = make(map[string]*SheetResult)
	}
	s.sheets[region.Code] = sheet
	return sheet, nil
}

// filterAppointments keeps appointments whose service and location contain
// the given filters, compared case-insensitively.
func filterAppointments(list []appointment.Appointment, benefit, locality string) []appointment.Appointment {
	benefit = strings.ToLower(strings.TrimSpace(benefit))
	locality = strings.ToLower(strings.TrimSpace(locality))
	if benefit == "" && locality == "" {
		return list
	}

	out := make([]appointment.Appointment, 0, len(list))
	for _, a := range list {
		if benefit != "" && !strings.Contains(strings.ToLower(a.ServiceName), benefit) {
			continue
		}
		if locality != "" && !strings.Contains(strings.ToLower(a.Location), locality) {
			continue
		}
		out = append(out, a)
	}
	return out
}
