package ingest

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/lox/tokyotemps/internal/models"
	"github.com/lox/tokyotemps/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st
}

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func newTestSaver(t *testing.T, st *store.Store) *Saver {
	t.Helper()
	saver := NewSaver(newTestClient(), st, tokyo(t))
	saver.SetRunRecorder(st)
	// 23:30 UTC on 31 July is already 1 August in Tokyo.
	saver.SetClock(func() time.Time { return time.Date(2024, 7, 31, 23, 30, 0, 0, time.UTC) })
	return saver
}

func TestFetchAndSave_Success(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	st := setupTestStore(t)
	saver := newTestSaver(t, st)
	ctx := context.Background()

	result := saver.FetchAndSave(ctx)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "2024-08-01", result.SavedDate)
	assert.Equal(t, 3, result.Count)
	assert.Empty(t, result.Error)

	saved, err := st.GetSavedForecasts(ctx, "")
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "2024-08-01", saved[0].ForecastDate)
	assert.Equal(t, "2024-08-02", saved[1].ForecastDate)
	assert.Equal(t, "2024-08-03", saved[2].ForecastDate)
	assert.True(t, saved[1].IsTropicalNight)

	runs, err := st.RecentIngestRuns(ctx, 5, false)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Success)
	assert.Equal(t, Source, runs[0].Source)
	assert.Equal(t, int64(3), runs[0].RecordsStored.Int64)
	assert.Equal(t, int64(http.StatusOK), runs[0].HTTPStatus.Int64)
}

func TestFetchAndSave_RerunReplaces(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	st := setupTestStore(t)
	saver := newTestSaver(t, st)
	ctx := context.Background()

	require.True(t, saver.FetchAndSave(ctx).Success)

	httpmock.Reset()
	registerForecastResponder(t, http.StatusOK, twoDayResponse())
	result := saver.FetchAndSave(ctx)
	require.True(t, result.Success, "error: %s", result.Error)

	saved, err := st.GetSavedForecasts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Equal(t, "雨", saved[0].Telop.String)

	dates, err := st.GetSavedDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-08-01"}, dates)
}

func TestFetchAndSave_NetworkFailure(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusBadGateway, "bad gateway")

	st := setupTestStore(t)
	saver := newTestSaver(t, st)
	ctx := context.Background()

	result := saver.FetchAndSave(ctx)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.SavedDate)
	assert.ErrorIs(t, result.Err(), ErrNetwork)

	saved, err := st.GetSavedForecasts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, saved)

	failed, err := st.RecentIngestRuns(ctx, 5, true)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMessage.String, "network failure")
}

func TestFetchAndSave_TimeoutRetriedAsNetworkFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "130010", 50*time.Millisecond)
	client.SetRetry(2, time.Millisecond)
	saver := NewSaver(client, failingStore{}, tokyo(t))

	result := saver.FetchAndSave(context.Background())

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err(), ErrNetwork)
	assert.Equal(t, int32(3), hits.Load(), "initial attempt plus two retries")
}

// overlapStore counts how many ReplaceForecasts calls are in flight at once.
type overlapStore struct {
	inner     *store.Store
	active    atomic.Int32
	maxActive atomic.Int32
}

func (o *overlapStore) ReplaceForecasts(ctx context.Context, savedDate string, recs []models.ForecastRecord) (int, error) {
	n := o.active.Add(1)
	defer o.active.Add(-1)
	for {
		m := o.maxActive.Load()
		if n <= m || o.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return o.inner.ReplaceForecasts(ctx, savedDate, recs)
}

func TestFetchAndSave_ConcurrentCallsSerialised(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	st := setupTestStore(t)
	tracked := &overlapStore{inner: st}
	saver := NewSaver(newTestClient(), tracked, tokyo(t))
	saver.SetClock(func() time.Time { return time.Date(2024, 7, 31, 23, 30, 0, 0, time.UTC) })
	ctx := context.Background()

	const callers = 8
	results := make([]SaveResult, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = saver.FetchAndSave(ctx)
		}()
	}
	wg.Wait()

	for i, r := range results {
		assert.True(t, r.Success, "call %d: %s", i, r.Error)
	}
	assert.Equal(t, int32(1), tracked.maxActive.Load())

	saved, err := st.GetSavedForecasts(ctx, "2024-08-01")
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

func TestFetchAndSave_InvalidPayloadKeepsPreviousRows(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	st := setupTestStore(t)
	saver := newTestSaver(t, st)
	ctx := context.Background()
	require.True(t, saver.FetchAndSave(ctx).Success)

	httpmock.Reset()
	registerForecastResponder(t, http.StatusOK, `{"forecasts": []}`)
	result := saver.FetchAndSave(ctx)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err(), ErrInvalidPayload)

	saved, err := st.GetSavedForecasts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

type failingStore struct{}

func (failingStore) ReplaceForecasts(context.Context, string, []models.ForecastRecord) (int, error) {
	return 0, errors.New("disk full")
}

func TestFetchAndSave_PersistenceFailure(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	saver := NewSaver(newTestClient(), failingStore{}, tokyo(t))

	result := saver.FetchAndSave(context.Background())

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err(), ErrPersistence)
	assert.Contains(t, result.Error, "disk full")
}

func TestSaver_LiveUsesCache(t *testing.T) {
	setupHTTPMock(t)
	registerForecastResponder(t, http.StatusOK, forecastResponse())

	clock := &fakeClock{t: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}
	saver := NewSaver(newTestClient(), failingStore{}, tokyo(t))
	saver.SetClock(clock.Now)
	saver.SetCache(NewForecastCache(30*time.Minute, clock.Now))
	ctx := context.Background()

	first, _, cached, err := saver.Live(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, first, 3)

	second, _, cached, err := saver.Live(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, second, 3)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	clock.Advance(31 * time.Minute)
	_, _, cached, err = saver.Live(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}
