package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminy/appointment"
	"terminy/geo"
	"terminy/importer"
	"terminy/internal/metrics"
	"terminy/nfz"
)

type fakeSource struct {
	mu          sync.Mutex
	total       int
	before      func(criteria appointment.Criteria) error
	calls       []appointment.Criteria
	invalidated int
}

func (f *fakeSource) Fetch(_ context.Context, criteria appointment.Criteria) (importer.Batch, error) {
	f.mu.Lock()
	f.calls = append(f.calls, criteria)
	before := f.before
	f.mu.Unlock()

	if before != nil {
		if err := before(criteria); err != nil {
			return importer.Batch{}, err
		}
	}

	start := min((criteria.Page-1)*criteria.Limit, f.total)
	end := min(start+criteria.Limit, f.total)
	items := make([]appointment.Appointment, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, appointment.New(appointment.Appointment{
			Region:       criteria.Region,
			FacilityName: fmt.Sprintf("Placówka %03d", i),
			ServiceName:  "PORADNIA OKULISTYCZNA",
			Location:     "Kielce",
			WaitingCount: appointment.IntPtr(1),
		}))
	}
	total := f.total
	return importer.Batch{Appointments: items, Total: &total, HasNextPage: end < total}, nil
}

func (f *fakeSource) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSuggester struct {
	names []string
}

func (f fakeSuggester) SearchServiceNames(_ context.Context, query string) ([]string, error) {
	if query == "" {
		return []string{"PORADNIA OKULISTYCZNA"}, nil
	}
	return f.names, nil
}

type fakeResolver struct {
	km map[string]float64
}

func (f fakeResolver) Resolve(_ context.Context, user *geo.Point, list []appointment.Appointment) appointment.Distances {
	distances := appointment.Distances{}
	if user == nil {
		return distances
	}
	for _, a := range list {
		if km, ok := f.km[a.FacilityName]; ok {
			distances.Set(a.ID, km)
		}
	}
	return distances
}

func newSearching(t *testing.T, source *fakeSource) *Orchestrator {
	t.Helper()
	o := New(Config{Source: source, Suggester: fakeSuggester{}})
	require.NoError(t, o.SelectRegion(context.Background(), "13"))
	return o
}

func lastID(s Snapshot) uuid.UUID {
	return s.Appointments[len(s.Appointments)-1].ID
}

func TestSearch_RequiresRegion(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 10}
	o := New(Config{Source: source})

	err := o.Search(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Wybierz województwo", Message(err))
	assert.Zero(t, source.callCount())
	assert.Equal(t, StateIdle, o.Snapshot().State)

	assert.ErrorIs(t, o.SelectRegion(context.Background(), "atlantyda"), ErrValidation)
}

func TestSelectRegion_ResetsFiltersAndLoadsSuggestions(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 30}
	o := newSearching(t, source)
	o.SetBenefit("  kardiologia ")
	o.SetLocality("Kielce")
	o.SetUrgent(true)
	require.NoError(t, o.Search(context.Background()))

	criteria := source.calls[0]
	assert.Equal(t, "13", criteria.Region)
	assert.Equal(t, "kardiologia", criteria.Benefit)
	assert.Equal(t, "Kielce", criteria.Locality)
	assert.Equal(t, appointment.CaseUrgent, criteria.CaseType)
	assert.Equal(t, 1, criteria.Page)
	assert.Equal(t, RemotePageSize, criteria.Limit)

	require.NoError(t, o.SelectRegion(context.Background(), "śląskie"))
	snapshot := o.Snapshot()
	assert.Equal(t, StateIdle, snapshot.State)
	require.NotNil(t, snapshot.Region)
	assert.Equal(t, "12", snapshot.Region.Code)
	assert.Empty(t, snapshot.Benefit)
	assert.Empty(t, snapshot.Locality)
	assert.False(t, snapshot.Urgent)
	assert.Empty(t, snapshot.Appointments)
	assert.Equal(t, []string{"PORADNIA OKULISTYCZNA"}, snapshot.Suggestions)
}

func TestLoadMore_FetchesThreeRemotePagesForSixtyRecords(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 60}
	reg := metrics.New(nil)
	o := New(Config{Source: source, Metrics: reg})
	require.NoError(t, o.SelectRegion(context.Background(), "13"))
	require.NoError(t, o.Search(context.Background()))

	snapshot := o.Snapshot()
	require.Len(t, snapshot.Appointments, DisplayPageSize)
	assert.Equal(t, 25, snapshot.Held)
	assert.True(t, snapshot.HasMoreResults)
	assert.Equal(t, StateDisplaying, snapshot.State)

	loaded, err := o.LoadMoreIfNeeded(context.Background(), lastID(snapshot))
	require.NoError(t, err)
	require.True(t, loaded)

	snapshot = o.Snapshot()
	assert.Len(t, snapshot.Appointments, 40)
	assert.Equal(t, 50, snapshot.Held)
	assert.True(t, snapshot.HasMoreResults)

	loaded, err = o.LoadMoreIfNeeded(context.Background(), snapshot.Appointments[36].ID)
	require.NoError(t, err)
	require.True(t, loaded)

	snapshot = o.Snapshot()
	assert.Len(t, snapshot.Appointments, 60)
	assert.False(t, snapshot.HasMoreResults)
	assert.Equal(t, 3, source.callCount())
	assert.Equal(t, 3, snapshot.RemotePage)
	assert.Equal(t, 60, snapshot.WaitingCount)

	loaded, err = o.LoadMoreIfNeeded(context.Background(), lastID(snapshot))
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 3, source.callCount())

	assert.Equal(t, 3.0, testutil.ToFloat64(reg.SearchBatches))
	assert.Equal(t, 60.0, testutil.ToFloat64(reg.AppointmentsShown))
}

func TestLoadMore_RevealsBufferBeforeFetching(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 25}
	o := newSearching(t, source)
	require.NoError(t, o.Search(context.Background()))

	snapshot := o.Snapshot()
	require.True(t, snapshot.HasMoreResults, "buffered rows keep the list open")

	loaded, err := o.LoadMoreIfNeeded(context.Background(), lastID(snapshot))
	require.NoError(t, err)
	require.True(t, loaded)

	snapshot = o.Snapshot()
	assert.Len(t, snapshot.Appointments, 25)
	assert.False(t, snapshot.HasMoreResults)
	assert.Equal(t, 1, source.callCount())
}

func TestLoadMore_IgnoresAnchorAwayFromBottom(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 60}
	o := newSearching(t, source)
	require.NoError(t, o.Search(context.Background()))
	snapshot := o.Snapshot()

	for _, index := range []int{0, 14} {
		loaded, err := o.LoadMoreIfNeeded(context.Background(), snapshot.Appointments[index].ID)
		require.NoError(t, err)
		assert.False(t, loaded, "anchor %d", index)
	}

	loaded, err := o.LoadMoreIfNeeded(context.Background(), snapshot.Appointments[15].ID)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func TestLoadMore_GuardsAgainstReentry(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{total: 60, before: func(criteria appointment.Criteria) error {
		if criteria.Page == 2 {
			close(entered)
			<-release
		}
		return nil
	}}
	o := newSearching(t, source)
	require.NoError(t, o.Search(context.Background()))
	anchor := lastID(o.Snapshot())

	type result struct {
		loaded bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		loaded, err := o.LoadMoreIfNeeded(context.Background(), anchor)
		done <- result{loaded, err}
	}()
	<-entered

	snapshot := o.Snapshot()
	assert.True(t, snapshot.LoadingMore)
	loaded, err := o.LoadMoreIfNeeded(context.Background(), lastID(snapshot))
	require.NoError(t, err)
	assert.False(t, loaded)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.True(t, first.loaded)
	assert.Len(t, o.Snapshot().Appointments, 40)
	assert.Equal(t, 2, source.callCount())
}

func TestLoadMore_FailureKeepsDisplayedResults(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	failing := true
	source := &fakeSource{total: 60, before: func(criteria appointment.Criteria) error {
		mu.Lock()
		defer mu.Unlock()
		if criteria.Page == 2 && failing {
			return &nfz.Error{Kind: nfz.KindServerError, Status: 503}
		}
		return nil
	}}
	o := newSearching(t, source)
	require.NoError(t, o.Search(context.Background()))

	loaded, err := o.LoadMoreIfNeeded(context.Background(), lastID(o.Snapshot()))
	require.True(t, loaded)
	require.ErrorIs(t, err, nfz.ErrServerError)

	snapshot := o.Snapshot()
	assert.Equal(t, StateDisplaying, snapshot.State)
	assert.Len(t, snapshot.Appointments, 25)
	assert.True(t, snapshot.HasMoreResults)
	assert.False(t, snapshot.LoadingMore)
	assert.Equal(t, "Błąd serwera (503). Spróbuj ponownie później.", snapshot.ErrorMessage)

	mu.Lock()
	failing = false
	mu.Unlock()

	loaded, err = o.LoadMoreIfNeeded(context.Background(), lastID(snapshot))
	require.NoError(t, err)
	require.True(t, loaded)
	assert.Len(t, o.Snapshot().Appointments, 45)
}

func TestSearch_FailureSetsFailedState(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 60, before: func(appointment.Criteria) error {
		return &nfz.Error{Kind: nfz.KindRateLimited, Status: 429}
	}}
	o := newSearching(t, source)

	err := o.Search(context.Background())
	require.ErrorIs(t, err, nfz.ErrRateLimited)

	snapshot := o.Snapshot()
	assert.Equal(t, StateFailed, snapshot.State)
	assert.Empty(t, snapshot.Appointments)
	assert.Equal(t, "Zbyt wiele zapytań. Spróbuj ponownie za chwilę.", snapshot.ErrorMessage)
}

func TestSearch_DiscardsSupersededResult(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{total: 30, before: func(criteria appointment.Criteria) error {
		if criteria.Region == "13" {
			close(entered)
			<-release
		}
		return nil
	}}
	o := newSearching(t, source)

	done := make(chan error, 1)
	go func() { done <- o.Search(context.Background()) }()
	<-entered

	require.NoError(t, o.SelectRegion(context.Background(), "12"))
	require.NoError(t, o.Search(context.Background()))

	close(release)
	require.ErrorIs(t, <-done, ErrSuperseded)

	snapshot := o.Snapshot()
	require.NotNil(t, snapshot.Region)
	assert.Equal(t, "12", snapshot.Region.Code)
	require.Len(t, snapshot.Appointments, DisplayPageSize)
	for _, a := range snapshot.Appointments {
		assert.Equal(t, "12", a.Region)
	}
}

func TestLoadMore_DiscardsPageFetchedBeforeNewerSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		supersede func(o *Orchestrator) error
		held      int
		displayed int
		page      int
	}{
		{
			name:      "search",
			supersede: func(o *Orchestrator) error { return o.Search(context.Background()) },
			held:      25,
			displayed: DisplayPageSize,
			page:      1,
		},
		{
			name:      "select region",
			supersede: func(o *Orchestrator) error { return o.SelectRegion(context.Background(), "12") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entered := make(chan struct{})
			release := make(chan struct{})
			var once sync.Once
			source := &fakeSource{total: 60, before: func(criteria appointment.Criteria) error {
				if criteria.Page == 2 {
					once.Do(func() { close(entered) })
					<-release
				}
				return nil
			}}
			o := newSearching(t, source)
			require.NoError(t, o.Search(context.Background()))

			type result struct {
				loaded bool
				err    error
			}
			done := make(chan result, 1)
			anchor := lastID(o.Snapshot())
			go func() {
				loaded, err := o.LoadMoreIfNeeded(context.Background(), anchor)
				done <- result{loaded: loaded, err: err}
			}()
			<-entered

			require.NoError(t, tt.supersede(o))
			before := o.Snapshot()

			close(release)
			res := <-done
			require.ErrorIs(t, res.err, ErrSuperseded)
			assert.False(t, res.loaded)

			after := o.Snapshot()
			assert.Equal(t, tt.held, after.Held)
			assert.Len(t, after.Appointments, tt.displayed)
			assert.Equal(t, tt.page, after.RemotePage)
			assert.Equal(t, before.Appointments, after.Appointments)
			assert.Equal(t, before.State, after.State)
		})
	}
}

func TestSearch_RanksBatchByDistance(t *testing.T) {
	t.Parallel()

	user := geo.Point{Latitude: 50.87, Longitude: 20.63}
	source := &fakeSource{total: 5}
	o := New(Config{
		Source:   source,
		Resolver: fakeResolver{km: map[string]float64{"Placówka 003": 2.5, "Placówka 001": 10}},
		Location: geo.StaticLocation{Point: &user},
	})
	require.NoError(t, o.SelectRegion(context.Background(), "13"))
	require.NoError(t, o.Search(context.Background()))

	snapshot := o.Snapshot()
	names := make([]string, 0, len(snapshot.Appointments))
	for _, a := range snapshot.Appointments {
		names = append(names, a.FacilityName)
	}
	assert.Equal(t, []string{"Placówka 003", "Placówka 001", "Placówka 000", "Placówka 002", "Placówka 004"}, names)
	require.NotNil(t, snapshot.Appointments[0].Distance)
	assert.Equal(t, 2.5, *snapshot.Appointments[0].Distance)
	assert.Nil(t, snapshot.Appointments[2].Distance)

	found, ok := o.FindDisplayed(snapshot.Appointments[1].ID)
	require.True(t, ok)
	require.NotNil(t, found.Distance)
	assert.Equal(t, 10.0, *found.Distance)
}

func TestRefreshData_InvalidatesSourceAndStartsOver(t *testing.T) {
	t.Parallel()

	source := &fakeSource{total: 60}
	o := newSearching(t, source)
	require.NoError(t, o.Search(context.Background()))
	_, err := o.LoadMoreIfNeeded(context.Background(), lastID(o.Snapshot()))
	require.NoError(t, err)

	require.NoError(t, o.RefreshData(context.Background()))

	snapshot := o.Snapshot()
	assert.Len(t, snapshot.Appointments, DisplayPageSize)
	assert.Equal(t, 1, snapshot.RemotePage)
	assert.Equal(t, 1, source.invalidated)
	assert.Equal(t, 1, source.calls[len(source.calls)-1].Page)
}

func TestResetSelection(t *testing.T) {
	t.Parallel()

	o := newSearching(t, &fakeSource{total: 30})
	require.NoError(t, o.Search(context.Background()))

	o.ResetSelection()

	snapshot := o.Snapshot()
	assert.Equal(t, StateIdle, snapshot.State)
	assert.Nil(t, snapshot.Region)
	assert.Empty(t, snapshot.Appointments)
	assert.False(t, snapshot.HasMoreResults)
	assert.ErrorIs(t, o.Search(context.Background()), ErrValidation)
}

func TestSearchServiceNames_UpdatesSuggestions(t *testing.T) {
	t.Parallel()

	o := New(Config{Source: &fakeSource{}, Suggester: fakeSuggester{names: []string{"PORADNIA KARDIOLOGICZNA"}}})
	names, err := o.SearchServiceNames(context.Background(), "kard")
	require.NoError(t, err)
	assert.Equal(t, []string{"PORADNIA KARDIOLOGICZNA"}, names)
	assert.Equal(t, names, o.Snapshot().Suggestions)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Field: "region"}, "Wybierz województwo"},
		{fmt.Errorf("fetch: %w", &nfz.Error{Kind: nfz.KindNotFound, Status: 404}), "Nie znaleziono danych"},
		{context.Canceled, "Wyszukiwanie przerwane"},
		{errors.New("boom"), "Błąd pobierania danych: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}
