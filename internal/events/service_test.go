package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humon/server/internal/lib/logger/sl"
	"github.com/humon/server/internal/metrics"
	"github.com/humon/server/internal/model"
	"github.com/humon/server/internal/repo/repotest"
)

type fixture struct {
	svc     *Service
	store   *repotest.Store
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := repotest.New()
	m := metrics.New()
	return fixture{
		svc:     NewService(sl.NewDiscardLogger(), store.Events(), store.Attendances(), m),
		store:   store,
		metrics: m,
	}
}

func (f fixture) user(t *testing.T) model.User {
	t.Helper()
	u, _, err := f.store.Users().GetOrCreateByDeviceToken(context.Background(), gofakeit.UUID(), gofakeit.UUID())
	require.NoError(t, err)
	return u
}

func validInput(lat, lon float64) EventInput {
	return EventInput{
		Name:      Some(gofakeit.Sentence(3)),
		Address:   Some(gofakeit.Street()),
		Lat:       Some(lat),
		Lon:       Some(lon),
		StartedAt: Some(time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)),
	}
}

func validationErrors(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Errors
}

func f64(v float64) *float64 { return &v }

func TestCreate_StoresEventOwnedByCaller(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)

	event, err := f.svc.Create(context.Background(), owner, validInput(37.77, -122.41))
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Equal(t, owner.ID, event.OwnerID)
	assert.Equal(t, 1, f.store.EventCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventWrites.WithLabelValues("create", "ok")))
}

func TestCreate_IgnoresClientSuppliedOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	other := f.user(t)

	var in EventInput
	body := `{"name":"Picnic","lat":1,"lon":2,"started_at":"2026-05-01T18:00:00Z","owner":{"id":` +
		jsonInt(other.ID) + `},"user_id":` + jsonInt(other.ID) + `}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	event, err := f.svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, event.OwnerID)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestCreate_MissingFieldsListedInOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)

	_, err := f.svc.Create(context.Background(), owner, EventInput{})
	assert.Equal(t, []string{
		"Lat can't be blank",
		"Lon can't be blank",
		"Name can't be blank",
		"Started at can't be blank",
	}, validationErrors(t, err))
	assert.Equal(t, 0, f.store.EventCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventWrites.WithLabelValues("create", "invalid")))
}

func TestCreate_ZeroCoordinatesAreValid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.user(t), validInput(0, 0))
	require.NoError(t, err)
}

func TestCreate_Validation(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*EventInput)
		want   []string
	}{
		{
			name:   "blank name",
			mutate: func(in *EventInput) { in.Name = Some("   ") },
			want:   []string{"Name can't be blank"},
		},
		{
			name:   "null name",
			mutate: func(in *EventInput) { in.Name = Optional[string]{Set: true} },
			want:   []string{"Name can't be blank"},
		},
		{
			name:   "lat out of range",
			mutate: func(in *EventInput) { in.Lat = Some(90.5) },
			want:   []string{"Lat must be between -90 and 90"},
		},
		{
			name:   "lon out of range",
			mutate: func(in *EventInput) { in.Lon = Some(-181.0) },
			want:   []string{"Lon must be between -180 and 180"},
		},
		{
			name:   "ended before started",
			mutate: func(in *EventInput) { in.EndedAt = Some(start.Add(-time.Hour)) },
			want:   []string{"Ended at can't be before started at"},
		},
		{
			name: "ended with missing start",
			mutate: func(in *EventInput) {
				in.StartedAt = Optional[time.Time]{}
				in.EndedAt = Some(start)
			},
			want: []string{"Started at can't be blank"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput(10, 10)
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), f.user(t), in)
			assert.Equal(t, tt.want, validationErrors(t, err))
			assert.Equal(t, 0, f.store.EventCount())
		})
	}
}

func TestCreate_EndedAtEqualToStartedAt(t *testing.T) {
	f := newFixture(t)
	in := validInput(10, 10)
	in.EndedAt = in.StartedAt

	_, err := f.svc.Create(context.Background(), f.user(t), in)
	require.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestUpdate_PartialByOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	created, err := f.svc.Create(context.Background(), owner, validInput(10, 20))
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), owner, created.ID, EventInput{Name: Some("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.Lat, updated.Lat)
	assert.Equal(t, created.Lon, updated.Lon)
	assert.Equal(t, created.Address, updated.Address)
	assert.True(t, created.StartedAt.Equal(updated.StartedAt))
	assert.Equal(t, owner.ID, updated.OwnerID)
}

func TestUpdate_NullNameRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	created, err := f.svc.Create(context.Background(), owner, validInput(10, 20))
	require.NoError(t, err)

	var in EventInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":null}`), &in))

	_, err = f.svc.Update(context.Background(), owner, created.ID, in)
	assert.Equal(t, []string{"Name can't be blank"}, validationErrors(t, err))

	stored, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)
}

func TestUpdate_NonOwnerRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	created, err := f.svc.Create(context.Background(), owner, validInput(10, 20))
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.user(t), created.ID, EventInput{Name: Some("Hijacked")})
	assert.ErrorIs(t, err, ErrNotOwner)

	stored, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), f.user(t), 999, EventInput{Name: Some("x")})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestNearest_FiltersAndOrdersByDistance(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	ctx := context.Background()

	far, err := f.svc.Create(ctx, owner, validInput(10, 10))
	require.NoError(t, err)
	lessNear, err := f.svc.Create(ctx, owner, validInput(0.5, 0.5))
	require.NoError(t, err)
	near, err := f.svc.Create(ctx, owner, validInput(0.1, 0.1))
	require.NoError(t, err)

	got, err := f.svc.Nearest(ctx, NearestParams{Lat: f64(0), Lon: f64(0), Radius: f64(100)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, near.ID, got[0].ID)
	assert.Equal(t, lessNear.ID, got[1].ID)
	for _, e := range got {
		assert.NotEqual(t, far.ID, e.ID)
	}
}

func TestNearest_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Nearest(context.Background(), NearestParams{Lat: f64(0), Lon: f64(0), Radius: f64(1)})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNearest_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Nearest(context.Background(), NearestParams{Lat: f64(91), Radius: f64(0)})
	assert.Equal(t, []string{
		"Lat must be between -90 and 90",
		"Lon can't be blank",
		"Radius must be greater than 0",
	}, validationErrors(t, err))
}

func TestNearestParamsFromQuery(t *testing.T) {
	p, err := NearestParamsFromQuery(map[string][]string{
		"lat":    {"37.5"},
		"lon":    {"-122"},
		"radius": {"2.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, 37.5, *p.Lat)
	assert.Equal(t, -122.0, *p.Lon)
	assert.Equal(t, 2.5, *p.Radius)

	p, err = NearestParamsFromQuery(map[string][]string{"lat": {"1"}})
	require.NoError(t, err)
	assert.Nil(t, p.Lon)
	assert.Nil(t, p.Radius)

	_, err = NearestParamsFromQuery(map[string][]string{"lat": {"north"}, "lon": {"1"}, "radius": {"x"}})
	assert.Equal(t, []string{"Lat is not a number", "Radius is not a number"}, validationErrors(t, err))
}

func TestAttend_CreatesThenReturnsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Create(ctx, f.user(t), validInput(1, 1))
	require.NoError(t, err)
	guest := f.user(t)

	first, created, err := f.svc.Attend(ctx, guest, event.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, event.ID, first.EventID)
	assert.Equal(t, guest.ID, first.UserID)

	second, created, err := f.svc.Attend(ctx, guest, event.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.AttendanceCount())
}

func TestAttend_ConcurrentDuplicatesYieldOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.svc.Create(ctx, f.user(t), validInput(1, 1))
	require.NoError(t, err)
	guest := f.user(t)

	const n = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := f.svc.Attend(ctx, guest, event.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	count, err := f.store.Attendances().CountForEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAttend_UnknownEvent(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Attend(context.Background(), f.user(t), 12345)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Equal(t, 0, f.store.AttendanceCount())
}

func TestAttend_MissingEventID(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Attend(context.Background(), f.user(t), 0)
	assert.Equal(t, []string{"Event can't be blank"}, validationErrors(t, err))
}

func TestOptional_DistinguishesNullFromAbsent(t *testing.T) {
	var in EventInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":null,"lat":0}`), &in))

	assert.True(t, in.Name.Set)
	assert.Nil(t, in.Name.Value)
	assert.True(t, in.Lat.Set)
	require.NotNil(t, in.Lat.Value)
	assert.Equal(t, 0.0, *in.Lat.Value)
	assert.False(t, in.Lon.Set)
	assert.False(t, in.Address.Set)
}
