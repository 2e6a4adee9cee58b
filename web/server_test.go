package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"terminy/appointment"
	"terminy/importer"
	"terminy/internal/metrics"
	"terminy/nfz"
	"terminy/search"
)

type fakeSource struct {
	total int
	err   error
}

func (f fakeSource) Fetch(_ context.Context, criteria appointment.Criteria) (importer.Batch, error) {
	if f.err != nil {
		return importer.Batch{}, f.err
	}
	start := min((criteria.Page-1)*criteria.Limit, f.total)
	end := min(start+criteria.Limit, f.total)
	items := make([]appointment.Appointment, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, appointment.New(appointment.Appointment{
			Region:       criteria.Region,
			FacilityName: fmt.Sprintf("Placówka %02d", i),
			ServiceName:  criteria.Benefit,
			Location:     "Opole",
		}))
	}
	total := f.total
	return importer.Batch{Appointments: items, Total: &total, HasNextPage: end < total}, nil
}

type fakeSuggester struct{}

func (fakeSuggester) SearchServiceNames(_ context.Context, query string) ([]string, error) {
	if len([]rune(strings.TrimSpace(query))) < nfz.MinServiceQueryLength {
		return nfz.CommonBenefits(), nil
	}
	return []string{strings.ToUpper(query)}, nil
}

func newTestServer(t *testing.T, source importer.RawRecordSource) (*httptest.Server, *search.Orchestrator) {
	t.Helper()

	orchestrator := search.New(search.Config{Source: source, Suggester: fakeSuggester{}})
	ts := httptest.NewServer(NewServer(ServerConfig{Orchestrator: orchestrator}))
	t.Cleanup(ts.Close)
	return ts, orchestrator
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	resp, err := http.Post(url, "application/json", reader)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestServer_RegionsListsAllVoivodeships(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, fakeSource{})
	resp, err := http.Get(ts.URL + "/api/regions")
	if err != nil {
		t.Fatalf("get regions: %v", err)
	}
	defer resp.Body.Close()

	regions := decode[[]RegionView](t, resp)
	if len(regions) != 16 {
		t.Fatalf("expected 16 regions, got %d", len(regions))
	}
	if regions[7].Code != "08" || regions[7].Slug != "opolskie" {
		t.Fatalf("unexpected region %+v", regions[7])
	}
}

func TestServer_SearchFlow(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, fakeSource{total: 30})

	resp := post(t, ts.URL+"/api/region/08", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select region: expected 200, got %d", resp.StatusCode)
	}
	selected := decode[ResultsView](t, resp)
	if selected.Region == nil || selected.Region.Slug != "opolskie" || selected.State != search.StateIdle {
		t.Fatalf("unexpected state after region select: %+v", selected)
	}
	if len(selected.Suggestions) == 0 {
		t.Fatalf("expected default suggestions")
	}

	resp = post(t, ts.URL+"/api/search", `{"benefit":"PORADNIA OKULISTYCZNA","urgent":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", resp.StatusCode)
	}
	results := decode[ResultsView](t, resp)
	if len(results.Appointments) != search.DisplayPageSize || !results.HasMoreResults {
		t.Fatalf("unexpected search results: %d shown, more=%v", len(results.Appointments), results.HasMoreResults)
	}
	if results.Benefit != "PORADNIA OKULISTYCZNA" || results.Appointments[0].ServiceName != "PORADNIA OKULISTYCZNA" {
		t.Fatalf("benefit filter not applied: %+v", results.Appointments[0])
	}

	anchor := results.Appointments[len(results.Appointments)-1].ID
	resp = post(t, ts.URL+"/api/more/"+anchor, "")
	more := decode[loadMoreView](t, resp)
	if !more.Loaded || len(more.Results.Appointments) != 30 || more.Results.HasMoreResults {
		t.Fatalf("unexpected load more result: loaded=%v shown=%d more=%v", more.Loaded, len(more.Results.Appointments), more.Results.HasMoreResults)
	}

	detail, err := http.Get(ts.URL + "/api/appointments/" + anchor)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	defer detail.Body.Close()
	if detail.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for displayed appointment, got %d", detail.StatusCode)
	}
	if view := decode[AppointmentView](t, detail); view.ID != anchor {
		t.Fatalf("unexpected appointment %+v", view)
	}

	resp = post(t, ts.URL+"/api/reset", "")
	reset := decode[ResultsView](t, resp)
	if reset.Region != nil || len(reset.Appointments) != 0 {
		t.Fatalf("expected empty state after reset: %+v", reset)
	}
}

func TestServer_SearchWithoutRegionIsBadRequest(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, fakeSource{total: 5})
	resp := post(t, ts.URL+"/api/search", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Error != "Wybierz województwo" {
		t.Fatalf("unexpected error message %q", body.Error)
	}
}

func TestServer_UpstreamErrorsMapToStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
	}{
		{err: &nfz.Error{Kind: nfz.KindRateLimited, Status: 429}, status: http.StatusTooManyRequests},
		{err: &nfz.Error{Kind: nfz.KindServerError, Status: 500}, status: http.StatusBadGateway},
		{err: fmt.Errorf("disk full"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		ts, orchestrator := newTestServer(t, fakeSource{err: tt.err})
		if err := orchestrator.SelectRegion(context.Background(), "08"); err != nil {
			t.Fatalf("select region: %v", err)
		}
		resp := post(t, ts.URL+"/api/search", "")
		if resp.StatusCode != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, resp.StatusCode)
		}
		body := decode[errorResponse](t, resp)
		if body.Error != search.Message(tt.err) || body.Results.State != search.StateFailed {
			t.Fatalf("unexpected error body %+v", body)
		}
	}
}

func TestServer_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	ts, orchestrator := newTestServer(t, fakeSource{total: 5})
	if err := orchestrator.SelectRegion(context.Background(), "08"); err != nil {
		t.Fatalf("select region: %v", err)
	}

	if resp := post(t, ts.URL+"/api/search", `{"unknown":1}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/more/not-a-uuid", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/region/99", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown region, got %d", resp.StatusCode)
	}
}

func TestServer_BenefitsAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	orchestrator := search.New(search.Config{Source: fakeSource{total: 3}, Suggester: fakeSuggester{}, Metrics: m})
	ts := httptest.NewServer(NewServer(ServerConfig{Orchestrator: orchestrator, Gatherer: reg}))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/benefits?q=kard")
	if err != nil {
		t.Fatalf("get benefits: %v", err)
	}
	defer resp.Body.Close()
	if names := decode[[]string](t, resp); len(names) != 1 || names[0] != "KARD" {
		t.Fatalf("unexpected names %v", names)
	}

	if err := orchestrator.SelectRegion(context.Background(), "08"); err != nil {
		t.Fatalf("select region: %v", err)
	}
	post(t, ts.URL+"/api/search", "")

	metricsResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	body, _ := io.ReadAll(metricsResp.Body)
	if !strings.Contains(string(body), "terminy_search_batches_total 1") {
		t.Fatalf("metrics missing search batch counter: %s", body)
	}
}

func TestServer_IndexListsRegions(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, fakeSource{})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `<option value="08">Opolskie</option>`) {
		t.Fatalf("index page is missing region options:\n%s", body)
	}

	missing, err := http.Get(ts.URL + "/month/2026-01")
	if err != nil {
		t.Fatalf("get unknown page: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown page, got %d", missing.StatusCode)
	}
}

type queueSource struct{}

func (queueSource) Fetch(_ context.Context, criteria appointment.Criteria) (importer.Batch, error) {
	items := []appointment.Appointment{
		appointment.New(appointment.Appointment{SourceID: "q-1", Region: criteria.Region, FacilityName: "Szpital", ServiceName: "PORADNIA", Location: "Opole"}),
		appointment.New(appointment.Appointment{Region: criteria.Region, FacilityName: "Przychodnia", ServiceName: "PORADNIA", Location: "Nysa"}),
	}
	total := len(items)
	return importer.Batch{Appointments: items, Total: &total}, nil
}

type fakeDirectory struct {
	mu         sync.Mutex
	queueErr   error
	queueCalls []string
	province   string
}

func (f *fakeDirectory) FetchQueue(_ context.Context, id string) (nfz.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueCalls = append(f.queueCalls, id)
	if f.queueErr != nil {
		return nfz.Queue{}, f.queueErr
	}
	return nfz.Queue{ID: id, Attributes: &nfz.QueueAttributes{
		Provider: "Szpital Wojewódzki",
		Benefit:  "PORADNIA",
		Locality: "OPOLE",
		Phone:    "77 123 45 67",
		Dates:    &nfz.Dates{Date: "2026-11-02"},
	}}, nil
}

func (f *fakeDirectory) FetchLocalities(_ context.Context, province, name string, _ int) (nfz.Page[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.province = province
	return nfz.Page[string]{Items: []string{strings.ToUpper(name) + "A"}, Number: 1}, nil
}

func newDirectoryServer(t *testing.T, directory *fakeDirectory) (*httptest.Server, search.Snapshot) {
	t.Helper()

	orchestrator := search.New(search.Config{Source: queueSource{}, Suggester: fakeSuggester{}})
	if err := orchestrator.SelectRegion(context.Background(), "08"); err != nil {
		t.Fatalf("select region: %v", err)
	}
	if err := orchestrator.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	ts := httptest.NewServer(NewServer(ServerConfig{Orchestrator: orchestrator, Directory: directory}))
	t.Cleanup(ts.Close)
	return ts, orchestrator.Snapshot()
}

func getAppointment(t *testing.T, baseURL, id string) AppointmentView {
	t.Helper()

	resp, err := http.Get(baseURL + "/api/appointments/" + id)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	return decode[AppointmentView](t, resp)
}

func TestServer_AppointmentRefreshesFromQueueDetails(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{}
	ts, snapshot := newDirectoryServer(t, directory)

	var apiID, sheetID string
	for _, a := range snapshot.Appointments {
		if a.SourceID == "q-1" {
			apiID = a.ID.String()
		} else {
			sheetID = a.ID.String()
		}
	}

	view := getAppointment(t, ts.URL, apiID)
	if view.ID != apiID || view.FacilityName != "Szpital Wojewódzki" || view.Phone != "77 123 45 67" || view.FirstAvailableDate != "2026-11-02" {
		t.Fatalf("expected refreshed details, got %+v", view)
	}

	view = getAppointment(t, ts.URL, sheetID)
	if view.FacilityName != "Przychodnia" {
		t.Fatalf("expected session copy for record without source id, got %+v", view)
	}
	directory.mu.Lock()
	defer directory.mu.Unlock()
	if len(directory.queueCalls) != 1 || directory.queueCalls[0] != "q-1" {
		t.Fatalf("unexpected queue lookups %v", directory.queueCalls)
	}
}

func TestServer_AppointmentKeepsSessionCopyWhenRefreshFails(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{queueErr: &nfz.Error{Kind: nfz.KindServerError, Status: 502}}
	ts, snapshot := newDirectoryServer(t, directory)

	for _, a := range snapshot.Appointments {
		if a.SourceID != "q-1" {
			continue
		}
		view := getAppointment(t, ts.URL, a.ID.String())
		if view.FacilityName != "Szpital" || view.Location != "Opole" {
			t.Fatalf("expected session copy, got %+v", view)
		}
		return
	}
	t.Fatalf("queue-backed appointment not displayed")
}

func TestServer_LocalitiesSuggestWithinSelectedRegion(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{}
	ts, _ := newDirectoryServer(t, directory)

	resp, err := http.Get(ts.URL + "/api/localities?q=nys")
	if err != nil {
		t.Fatalf("get localities: %v", err)
	}
	defer resp.Body.Close()
	if names := decode[[]string](t, resp); len(names) != 1 || names[0] != "NYSA" {
		t.Fatalf("unexpected localities %v", names)
	}
	directory.mu.Lock()
	province := directory.province
	directory.mu.Unlock()
	if province != "08" {
		t.Fatalf("expected region filter 08, got %q", province)
	}

	short, err := http.Get(ts.URL + "/api/localities?q=n")
	if err != nil {
		t.Fatalf("get localities: %v", err)
	}
	defer short.Body.Close()
	if names := decode[[]string](t, short); len(names) != 0 {
		t.Fatalf("expected no suggestions for a one-letter query, got %v", names)
	}

	plain, _ := newTestServer(t, fakeSource{})
	none, err := http.Get(plain.URL + "/api/localities?q=nysa")
	if err != nil {
		t.Fatalf("get localities: %v", err)
	}
	defer none.Body.Close()
	if names := decode[[]string](t, none); len(names) != 0 {
		t.Fatalf("expected no suggestions without a directory, got %v", names)
	}
}
