package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segdb"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/logger"
)

// fakeStore serves flags from memory.
type fakeStore struct {
	flags     map[string]*flags.Flag
	published []*flags.Flag
	fail      error
}

func (s *fakeStore) ListFlags(ctx context.Context) ([]segdb.FlagInfo, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	var out []segdb.FlagInfo
	for name, f := range s.flags {
		out = append(out, segdb.FlagInfo{
			IFO:     f.IFO,
			Name:    f.Tag,
			Version: f.Version,
			Comment: name,
		})
	}
	return out, nil
}

func (s *fakeStore) Query(ctx context.Context, name string, start, end segments.Time) (*flags.Flag, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	f, ok := s.flags[name]
	if !ok {
		return nil, fmt.Errorf("flag %s: %w", name, flags.ErrNoData)
	}
	window := segments.List{segments.NewSegment(start, end)}
	out := f.Copy()
	out.Known = out.Known.Intersect(window)
	out.Active = out.Active.Intersect(window)
	return out, nil
}

func (s *fakeStore) Publish(ctx context.Context, f *flags.Flag) error {
	if s.fail != nil {
		return s.fail
	}
	s.published = append(s.published, f)
	return nil
}

// fakePublisher records stream announcements.
type fakePublisher struct {
	flags []*flags.Flag
}

func (p *fakePublisher) Publish(f *flags.Flag) {
	p.flags = append(p.flags, f)
}

func newTestRouter(store Store, pub Publisher) http.Handler {
	h := NewFlagHandler(store, pub, logger.Nop())
	r := mux.NewRouter()
	r.HandleFunc("/api/flags", h.ListFlags).Methods("GET")
	r.HandleFunc("/api/segments/{ifo}/{flag}/{version}", h.GetSegments).Methods("GET")
	r.HandleFunc("/api/segments", h.PublishSegments).Methods("POST")
	return r
}

func testStore() *fakeStore {
	f := flags.New(
		"X1:TEST-FLAG_NAME:1",
		segments.List{segments.Span(0, 10)},
		segments.List{segments.Span(2, 4), segments.Span(6, 8)},
	)
	return &fakeStore{flags: map[string]*flags.Flag{f.Name: f}}
}

func TestGetSegments(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/segments/X1/TEST-FLAG_NAME/1?s=0&e=10", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp FlagResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "X1:TEST-FLAG_NAME:1", resp.Name)
	assert.True(t, resp.Active.Equal(segments.List{
		segments.Span(2, 4),
		segments.Span(6, 8),
	}))
}

func TestGetSegmentsClipsToWindow(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/segments/X1/TEST-FLAG_NAME/1?s=3&e=7", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp FlagResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Known.Equal(segments.List{segments.Span(3, 7)}))
	assert.True(t, resp.Active.Equal(segments.List{
		segments.Span(3, 4),
		segments.Span(6, 7),
	}))
}

func TestGetSegmentsUnknownFlag(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/segments/X1/NO-SUCH_FLAG/1?s=0&e=10", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSegmentsBadSpan(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	for _, query := range []string{"", "?s=5&e=5", "?s=abc&e=10", "?s=10&e=5"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/segments/X1/TEST-FLAG_NAME/1"+query, nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}

func TestPublishSegments(t *testing.T) {
	store := testStore()
	pub := &fakePublisher{}
	router := newTestRouter(store, pub)

	body := `{"name": "X1:NEW-FLAG:1", "known": [[0, 10]], "active": [[1, 3], [2, 5]]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/segments", bytes.NewBufferString(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.published, 1)
	f := store.published[0]
	assert.Equal(t, "X1:NEW-FLAG:1", f.Name)
	// the posted overlap is coalesced before storage
	assert.True(t, f.Active.Equal(segments.List{segments.Span(1, 5)}))

	require.Len(t, pub.flags, 1)
	assert.Equal(t, f, pub.flags[0])
}

func TestPublishSegmentsRejectsBadBody(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	for _, body := range []string{"not json", `{"known": [[0, 1]]}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/segments", bytes.NewBufferString(body))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestListFlags(t *testing.T) {
	router := newTestRouter(testStore(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/flags", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var infos []segdb.FlagInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "X1:TEST-FLAG_NAME:1", infos[0].FullName())
}
