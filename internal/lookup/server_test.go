package lookup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retreat-leads/internal/identity"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
)

func seededLedger(t *testing.T) (*ledger.Ledger, string) {
	t.Helper()
	l := ledger.New("")
	key, err := identity.OrganizerKey("Maya Flow Yoga")
	require.NoError(t, err)
	_, err = l.UpsertOrganizer(key, model.Organizer{DisplayName: "Maya Flow Yoga"}, ledger.Provenance{Platform: "retreat.guru"})
	require.NoError(t, err)

	for i, ev := range []struct{ url, loc, platform string }{
		{"https://retreat.guru/events/1", "Tulum", "retreat.guru"},
		{"https://bookretreats.com/r/bali-flow", "Bali", "bookretreats.com"},
	} {
		ek, err := identity.EventKey(ev.url)
		require.NoError(t, err)
		_, _, err = l.UpsertEvent(ek, key, model.Event{
			URL: ev.url, LocationText: ev.loc, Platform: ev.platform,
			ScrapedAt: time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	return l, key
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	l, _ := seededLedger(t)
	var body map[string]any
	rec := get(t, NewServer(l, nil).Handler(), "/health", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["events"])
}

func TestOrganizerExists(t *testing.T) {
	t.Parallel()

	l, key := seededLedger(t)
	h := NewServer(l, nil).Handler()

	var resp ExistsResponse
	rec := get(t, h, "/organizers/exists?name="+url.QueryEscape("  maya FLOW yoga! "), &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ExistsResponse{Exists: true, Key: key}, resp)

	resp = ExistsResponse{}
	get(t, h, "/organizers/exists?name=Someone+Else", &resp)
	assert.False(t, resp.Exists)
	assert.Empty(t, resp.Key)

	rec = get(t, h, "/organizers/exists", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventExists(t *testing.T) {
	t.Parallel()

	l, _ := seededLedger(t)
	h := NewServer(l, nil).Handler()

	var resp ExistsResponse
	get(t, h, "/events/exists?url="+url.QueryEscape("https://www.retreat.guru/events/1/?utm_source=mail"), &resp)
	assert.True(t, resp.Exists)
	assert.Len(t, resp.Key, identity.KeyLength)

	resp = ExistsResponse{}
	get(t, h, "/events/exists?url="+url.QueryEscape("https://retreat.guru/events/999"), &resp)
	assert.False(t, resp.Exists)
	assert.Empty(t, resp.Key)

	rec := get(t, h, "/events/exists?url=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrganizer(t *testing.T) {
	t.Parallel()

	l, key := seededLedger(t)
	h := NewServer(l, nil).Handler()

	var resp OrganizerResponse
	rec := get(t, h, "/organizers/"+key, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Maya Flow Yoga", resp.Organizer.DisplayName)
	assert.Equal(t, 2, resp.Aggregates.RetreatCount)
	assert.True(t, resp.Aggregates.IsTravelingFacilitator)
	assert.Equal(t, model.LeadTravelingFacilitator, resp.Score.LeadType)
	assert.InDelta(t, 95, resp.Score.PriorityScore, 0.001)
	assert.Len(t, resp.Events, 2)

	rec = get(t, h, "/organizers/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	l, _ := seededLedger(t)
	h := NewServer(l, []string{"https://scraper.example"}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://scraper.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://scraper.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
