package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	relayhttp "github.com/dkeye/relay/internal/adapters/http"
	"github.com/dkeye/relay/internal/app"
	"github.com/dkeye/relay/internal/app/orch"
	"github.com/dkeye/relay/internal/config"
	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:            "test",
		WSPath:          "/ws",
		ReadLimit:       65536,
		Secret:          "test-secret",
		ConnectInterval: time.Minute,
		ICEServers: []config.ICEServer{
			{URLs: []string{"stun:stun.example.org:3478"}},
		},
	}
}

func newRelay(t *testing.T, cfg *config.Config) (*orch.Orchestrator, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	o := orch.New(app.NewRegistry(), core.NewRoomDirectory())
	srv := httptest.NewServer(relayhttp.SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return o, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, env domain.Envelope) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(env))
}

func receive(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	return string(data)
}

func TestRelay_JoinCallReplaysRoom(t *testing.T) {
	req := require.New(t)
	o, srv := newRelay(t, testConfig())

	// Given a creator that stored a room, an offer and one candidate
	creator := dial(t, srv)
	send(t, creator, domain.Envelope{DataType: domain.StoreRoom, RoomID: "r1"})
	send(t, creator, domain.Envelope{DataType: domain.StoreOffer, RoomID: "r1",
		Offer: domain.Offer{Type: "offer", SDP: "v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\n"}})
	send(t, creator, domain.Envelope{DataType: domain.StoreCandidate, RoomID: "r1",
		Candidate: domain.Candidate{Candidate: "cand1", SDPMid: "0"}})
	req.Eventually(func() bool {
		rooms := o.Rooms.List()
		return len(rooms) == 1 && rooms[0].HasOffer && rooms[0].Candidates == 1
	}, 2*time.Second, 10*time.Millisecond)

	// When a second client joins the call
	joiner := dial(t, srv)
	req.Eventually(func() bool { return o.Registry.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
	send(t, joiner, domain.Envelope{DataType: domain.JoinCall, RoomID: "r1"})

	// Then every connected client receives the offer followed by the candidate
	wantOffer := `{"data_type":"offer","offer":{"type":"offer","sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1\r\n"}}`
	wantCand := `{"data_type":"candidate","candidate":{"candidate":"cand1","sdpMid":"0","sdpMLineIndex":0,"usernameFragment":""}}`
	for _, ws := range []*websocket.Conn{joiner, creator} {
		req.JSONEq(wantOffer, receive(t, ws))
		req.JSONEq(wantCand, receive(t, ws))
	}
}

func TestRelay_AnswerIsBroadcast(t *testing.T) {
	req := require.New(t)
	o, srv := newRelay(t, testConfig())

	creator := dial(t, srv)
	send(t, creator, domain.Envelope{DataType: domain.StoreRoom, RoomID: "r1"})
	req.Eventually(func() bool { return o.Rooms.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	joiner := dial(t, srv)
	req.Eventually(func() bool { return o.Registry.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, joiner, domain.Envelope{DataType: domain.SendAnswer, RoomID: "r1",
		Answer: domain.Answer{Type: "answer", SDP: "v=0\r\n"}})

	req.JSONEq(`{"data_type":"answer","answer":{"type":"answer","sdp":"v=0\r\n"}}`, receive(t, creator))
}

func TestRelay_DisconnectRemovesCreatorRoom(t *testing.T) {
	req := require.New(t)
	o, srv := newRelay(t, testConfig())

	creator := dial(t, srv)
	send(t, creator, domain.Envelope{DataType: domain.StoreRoom, RoomID: "r1"})
	req.Eventually(func() bool { return o.Rooms.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	req.NoError(creator.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	req.Eventually(func() bool {
		return o.Rooms.Count() == 0 && o.Registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelay_MalformedFrameKeepsConnection(t *testing.T) {
	req := require.New(t)
	o, srv := newRelay(t, testConfig())

	ws := dial(t, srv)
	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte(`{"data_type":"store_room"}`)))
	send(t, ws, domain.Envelope{DataType: domain.StoreRoom, RoomID: "r1"})

	req.Eventually(func() bool { return o.Rooms.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal(1, o.Registry.Count())
}

func TestRouter_HTTPEndpoints(t *testing.T) {
	o, srv := newRelay(t, testConfig())
	_, err := o.Rooms.CreateRoom("conn-a", "r1")
	require.NoError(t, err)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("rooms", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/rooms")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Rooms []core.RoomInfo `json:"rooms"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, []core.RoomInfo{{RoomID: "r1"}}, body.Rooms)
	})

	t.Run("ice servers", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/ice-servers")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			ICEServers []struct {
				URLs []string `json:"urls"`
			} `json:"iceServers"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.ICEServers, 1)
		assert.Equal(t, []string{"stun:stun.example.org:3478"}, body.ICEServers[0].URLs)
	})

	t.Run("client token cookie", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEmpty(t, resp.Cookies())
	})
}

func TestRouter_UnknownRoutesAre404(t *testing.T) {
	_, srv := newRelay(t, testConfig())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/signal"},
		{http.MethodPost, "/ws"},
		{http.MethodPut, "/api/rooms"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			r, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(r)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

func TestRouter_ConnectLimit(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	cfg.ConnectLimit = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := relayhttp.SetupRouter(ctx, cfg, orch.New(app.NewRegistry(), core.NewRoomDirectory()))

	// A plain GET passes the limiter and is then refused by the upgrader.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	req.Equal(http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	req.Equal(http.StatusTooManyRequests, w.Code)
}
