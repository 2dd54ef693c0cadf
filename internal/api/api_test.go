package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pefman/w40k-roster/internal/session"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

func loadIndex(t *testing.T) *wahapedia.Index {
	t.Helper()
	idx, err := wahapedia.Load("../wahapedia/testdata/orks")
	require.NoError(t, err)
	return idx
}

func greenTide(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../parser/testdata/green_tide.txt")
	require.NoError(t, err)
	return string(data)
}

func newTestServer(t *testing.T, loaded bool) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(session.NewStore(nil, nil), nil)
	if loaded {
		srv.SetIndex(loadIndex(t))
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

// unitID resolves a display name in a session view.
func unitID(t *testing.T, v session.View, displayName string) string {
	t.Helper()
	for _, u := range v.Army.Units {
		if u.DisplayName == displayName {
			return u.InstanceID
		}
	}
	require.Failf(t, "unit not found", "%q", displayName)
	return ""
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "%v", err)
	return apiErr.Status
}

func TestHealthAndCORS(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/api/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReferenceLoading(t *testing.T) {
	srv, ts := newTestServer(t, false)
	c := NewClient(ts.URL)
	ctx := context.Background()

	ref, err := c.Reference(ctx)
	require.NoError(t, err)
	assert.False(t, ref.Loaded)

	_, err = c.FetchFactions(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
	_, err = c.CreateSession(ctx, greenTide(t))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))

	// Parsing needs no reference data.
	parsed, err := c.Parse(ctx, greenTide(t))
	require.NoError(t, err)
	assert.Equal(t, "Da Green Tide", parsed.ArmyName)
	assert.Len(t, parsed.Units, 20)

	srv.SetIndex(loadIndex(t))
	ref, err = c.Reference(ctx)
	require.NoError(t, err)
	assert.True(t, ref.Loaded)
	require.NotNil(t, ref.Summary)
	assert.Equal(t, "2026-09-30 10:00:00", ref.Summary.LastUpdate)

	factions, err := c.FetchFactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORK", "SM"}, []string{factions[0].ID, factions[1].ID})
}

func TestFetchFactions_Cached(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		writeJSON(w, []wahapedia.Faction{{ID: "ORK", Name: "Orks"}})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL)
	for range 3 {
		got, err := c.FetchFactions(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, hits)
}

func TestParse_JSONBody(t *testing.T) {
	_, ts := newTestServer(t, false)

	body := `{"text": "Boyz (75 Points)\n• 10x Boy\n  ◦ 10x Choppa\n"}`
	resp, err := http.Post(ts.URL+"/api/parse", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/parse", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	_, ts := newTestServer(t, true)
	c := NewClient(ts.URL)
	ctx := context.Background()

	v, err := c.CreateSession(ctx, greenTide(t))
	require.NoError(t, err)
	require.NotEmpty(t, v.ID)
	require.Len(t, v.Army.Units, 20)
	assert.Empty(t, v.LeaderPairings)
	assert.Len(t, v.Transports, 3)

	warboss := unitID(t, v, "Warboss")
	painboy := unitID(t, v, "Painboy")
	boyz := unitID(t, v, "Boyz")
	trukk := unitID(t, v, "Trukk")

	targets, err := c.EligibleTargets(ctx, v.ID, warboss)
	require.NoError(t, err)
	names := make([]string, 0, len(targets))
	for _, tg := range targets {
		names = append(names, tg.DisplayName)
		assert.Equal(t, 2, tg.AvailableSlots)
	}
	assert.Equal(t, []string{"Boyz", "Boyz #2", "Boyz #3", "Stormboyz"}, names)

	v, err = c.SetLeader(ctx, v.ID, warboss, boyz)
	require.NoError(t, err)
	assert.Equal(t, []string{warboss}, v.LeaderPairings[boyz])

	v, err = c.Embark(ctx, v.ID, boyz, trukk)
	require.NoError(t, err)
	assert.Equal(t, []string{boyz}, v.TransportAllocations[trukk])

	v, err = c.SetLeader(ctx, v.ID, painboy, boyz)
	require.NoError(t, err)
	assert.Equal(t, []string{warboss, painboy}, v.LeaderPairings[boyz])
	for _, load := range v.Transports {
		if load.UnitID == trukk {
			assert.Equal(t, 12, load.Used)
			assert.Equal(t, 12, load.Total)
		}
	}

	got, err := c.Session(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.LeaderPairings, got.LeaderPairings)

	v, err = c.Disembark(ctx, v.ID, boyz)
	require.NoError(t, err)
	assert.Empty(t, v.TransportAllocations)

	v, err = c.RemoveLeader(ctx, v.ID, painboy)
	require.NoError(t, err)
	assert.Equal(t, []string{warboss}, v.LeaderPairings[boyz])
}

func TestSessionErrors(t *testing.T) {
	_, ts := newTestServer(t, true)
	c := NewClient(ts.URL)
	ctx := context.Background()

	v, err := c.CreateSession(ctx, greenTide(t))
	require.NoError(t, err)
	warboss := unitID(t, v, "Warboss")
	trukk := unitID(t, v, "Trukk")
	ghaz := unitID(t, v, "Ghazghkull Thraka")

	_, err = c.Session(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = c.SetLeader(ctx, v.ID, "unit_999", trukk)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = c.SetLeader(ctx, v.ID, warboss, trukk)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = c.Embark(ctx, v.ID, ghaz, trukk)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = c.EligibleTargets(ctx, v.ID, "unit_999")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = c.CreateSession(ctx, "   ")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	resp, err := http.Post(ts.URL+"/api/sessions/"+v.ID+"/leaders/"+warboss, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/sessions/"+v.ID+"/leaders/"+warboss, strings.NewReader(`{"unit":"x"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Rejections leave the session untouched.
	got, err := c.Session(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LeaderPairings)
	assert.Empty(t, got.TransportAllocations)
}

func TestWebsocket(t *testing.T) {
	srv, ts := newTestServer(t, true)
	c := NewClient(ts.URL)
	ctx := context.Background()

	v, err := c.CreateSession(ctx, greenTide(t))
	require.NoError(t, err)
	boyz := unitID(t, v, "Boyz")
	trukk := unitID(t, v, "Trukk")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + v.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	type stateMsg struct {
		Type string       `json:"type"`
		Data session.View `json:"data"`
	}
	var first stateMsg
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, msgState, first.Type)
	assert.Equal(t, v.ID, first.Data.ID)
	assert.Eventually(t, func() bool { return srv.hub.count(v.ID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "embark",
		"data": map[string]string{"unit_id": boyz, "transport_id": trukk},
	}))
	var next stateMsg
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, msgState, next.Type)
	assert.Equal(t, []string{boyz}, next.Data.TransportAllocations[trukk])

	// HTTP mutations reach subscribers too.
	_, err = c.Disembark(ctx, v.ID, boyz)
	require.NoError(t, err)
	require.NoError(t, conn.ReadJSON(&next))
	assert.Empty(t, next.Data.TransportAllocations)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	var errMsg struct {
		Type string  `json:"type"`
		Data wsError `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, msgError, errMsg.Type)
	assert.Equal(t, http.StatusBadRequest, errMsg.Data.Status)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "embark",
		"data": map[string]string{"unit_id": trukk, "transport_id": boyz},
	}))
	require.NoError(t, conn.ReadJSON(&errMsg))
	assert.Equal(t, msgError, errMsg.Type)
	assert.Equal(t, http.StatusConflict, errMsg.Data.Status)
}

func TestWebsocket_UnknownSession(t *testing.T) {
	_, ts := newTestServer(t, true)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
