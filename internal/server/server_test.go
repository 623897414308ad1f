package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarren/alertline/internal/aggregate"
	"github.com/pmarren/alertline/internal/lifecycle"
	"github.com/pmarren/alertline/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	alerts    []models.Alert
	insertErr error
}

func (f *fakeStore) InsertAlert(ctx context.Context, in models.AlertInput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, models.Alert{
		ID:        id,
		Ticker:    in.Ticker,
		Signal:    in.Signal,
		Category:  in.Category,
		Interval:  in.Interval,
		Timestamp: in.Timestamp.UTC(),
	})
	return id, nil
}

func (f *fakeStore) FindByCategory(ctx context.Context, needle string) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := []models.Alert{}
	for _, a := range f.alerts {
		if strings.Contains(a.Category, needle) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

type recordingHandler struct {
	mu    sync.Mutex
	kinds []lifecycle.ErrorKind
}

func (r *recordingHandler) OnError(kind lifecycle.ErrorKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func newTestServer(store *fakeStore, errs *recordingHandler) *Server {
	return New(Config{
		Port:         0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		Store:        store,
		Errors:       errs,
		Log:          zerolog.Nop(),
	})
}

const validPayload = `{"ticker":"BTC","signal":"buy","category":"crypto-majors","timestamp":"2024-01-01T00:00:00Z","interval":"1h"}`

func TestHandleCreateAlert_Accepted(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(validPayload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
	require.Len(t, store.alerts, 1)
	assert.Equal(t, "BTC", store.alerts[0].Ticker)
}

func TestHandleCreateAlert_MalformedBody(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.alerts, "malformed payloads must never reach the store")
}

func TestHandleCreateAlert_MissingField(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	payload := `{"ticker":"BTC","signal":"buy","timestamp":"2024-01-01T00:00:00Z","interval":"1h"}`
	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.alerts)
}

func TestHandleCreateAlert_StoreFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection lost")}
	errs := &recordingHandler{}
	srv := newTestServer(store, errs)

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(validPayload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
	require.Len(t, errs.kinds, 1)
	assert.Equal(t, lifecycle.InternalError, errs.kinds[0])
}

func TestHandleCreateAlert_DuplicatesCreateDuplicateRows(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(validPayload))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}

	assert.Len(t, store.alerts, 2)
}

func TestIngestedAlertIsQueryableAndAggregates(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(validPayload))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	alerts, err := store.FindByCategory(context.Background(), "crypto")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	view := aggregate.GroupByInterval(alerts)
	require.Len(t, view, 1)
	assert.Equal(t, map[string]struct{}{"BTC": {}}, view["1h"])
}

func TestFindByCategory_EmptyNeedleReturnsEverything(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store, &recordingHandler{})

	payloads := []string{
		validPayload,
		`{"ticker":"AAPL","signal":"sell","category":"equities","timestamp":"2024-01-01T00:00:00Z","interval":"1d"}`,
	}
	for _, p := range payloads {
		req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(p))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	alerts, err := store.FindByCategory(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeStore{}, &recordingHandler{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
