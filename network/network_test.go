package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"siege_server/logic"
	"siege_server/storage"
)

type memorySink struct {
	saved chan storage.GameRecord
}

func newMemorySink() *memorySink {
	return &memorySink{saved: make(chan storage.GameRecord, 4)}
}

func (s *memorySink) SaveGame(_ context.Context, rec storage.GameRecord) error {
	s.saved <- rec
	return nil
}

func (s *memorySink) wait(t *testing.T) storage.GameRecord {
	t.Helper()
	select {
	case rec := <-s.saved:
		return rec
	case <-time.After(3 * time.Second):
		t.Fatalf("session was not persisted")
		return storage.GameRecord{}
	}
}

type summaries map[string]logic.Summary

func (s summaries) LoadSummary(_ context.Context, id string) (logic.Summary, error) {
	sum, ok := s[id]
	if !ok {
		return logic.Summary{}, storage.ErrReplayNotFound
	}
	return sum, nil
}

func writeLayout(t *testing.T, tweak func(*logic.Snapshot)) string {
	t.Helper()
	var roads []logic.Coords
	for x := 0; x < 10; x++ {
		roads = append(roads, logic.Coords{X: x, Y: 5})
	}
	snap := logic.Snapshot{
		Size:          10,
		Roads:         roads,
		Buildings:     []logic.Building{{ID: 1, Kind: logic.BuildingPlain, Origin: logic.Coords{X: 3, Y: 4}, Width: 1, HP: 40, Artifacts: 10}},
		AttackerTypes: []logic.AttackerType{{ID: 1, MaxHealth: 100, Speed: 1, BombCount: 2}},
		BombTypes:     []logic.BombType{{ID: 1, Radius: 1, Damage: 10}},
	}
	if tweak != nil {
		tweak(&snap)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal layout: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1.json"), data, 0o600); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	return dir
}

func newTestServer(t *testing.T, tune func(*logic.GameConfig), clock logic.Clock) (*SessionManager, *memorySink, *httptest.Server) {
	t.Helper()
	return newLayoutServer(t, writeLayout(t, nil), tune, clock)
}

func newLayoutServer(t *testing.T, layouts string, tune func(*logic.GameConfig), clock logic.Clock) (*SessionManager, *memorySink, *httptest.Server) {
	t.Helper()
	cfg := logic.DefaultGameConfig()
	cfg.Taunts.Enabled = false
	if tune != nil {
		tune(cfg)
	}
	sink := newMemorySink()
	m := NewSessionManager(cfg, storage.FileSnapshots{Dir: layouts}, sink, zap.NewNop())
	if clock != nil {
		m.Clock = clock
	}
	srv := httptest.NewServer(m.Handler(summaries{"known": {DamagePercentage: 42, Artifacts: 7}}))
	t.Cleanup(func() {
		m.Shutdown("test finished")
		srv.Close()
	})
	return m, sink, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.Header.Get("X-Session-Id") == "" {
		t.Fatalf("expected a session id header on upgrade")
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) logic.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev logic.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event %s: %v", data, err)
	}
	return ev
}

func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close the connection")
	}
}

func TestSessionOverWebsocket(t *testing.T) {
	t.Parallel()

	m, sink, srv := newTestServer(t, nil, nil)
	conn := dial(t, srv, "map_id=1")

	send(t, conn, `{"action_type":"PlaceAttacker","frame_number":1,"current_position":{"x":3,"y":5},"attacker_id":1,"bomb_id":1}`)
	if ev := receive(t, conn); ev.ResultType != logic.ResultPlacedAttacker || ev.FrameNumber != 1 {
		t.Fatalf("expected PlacedAttacker for frame 1, got %s/%d", ev.ResultType, ev.FrameNumber)
	}

	if got := m.ListSessions(); len(got) != 1 {
		t.Fatalf("expected one live session, got %v", got)
	}

	// Malformed and unknown frames get no reply.
	send(t, conn, `{not json`)
	send(t, conn, `{"action_type":"Dance","frame_number":2}`)

	send(t, conn, `{"action_type":"PlaceBombs","frame_number":1,"current_position":{"x":3,"y":5},"bomb_position":{"x":3,"y":5}}`)
	ev := receive(t, conn)
	if ev.ResultType != logic.ResultBuildingsDamaged {
		t.Fatalf("expected BuildingsDamaged, got %s (%s)", ev.ResultType, ev.Message)
	}
	if ev.TotalDamagePercentage != 100 || ev.DamagedBaseItems == nil || len(ev.DamagedBaseItems.Buildings) != 1 {
		t.Fatalf("unexpected bomb event %+v", ev)
	}

	send(t, conn, `{"action_type":"Terminate","frame_number":2}`)
	ev = receive(t, conn)
	if ev.ResultType != logic.ResultGameOver || !ev.IsGameOver {
		t.Fatalf("expected GameOver, got %s", ev.ResultType)
	}
	expectClosed(t, conn)

	rec := sink.wait(t)
	if rec.MapID != 1 || rec.Summary.Artifacts != 3 || rec.Summary.BombsUsed != 1 {
		t.Fatalf("unexpected persisted record %+v", rec.Summary)
	}
	if len(rec.Entries) == 0 || rec.Entries[len(rec.Entries)-1].Kind != logic.EventGameOver {
		t.Fatalf("expected persisted log to end with GameOver")
	}
}

func TestInvalidMoveClosesSession(t *testing.T) {
	t.Parallel()

	_, sink, srv := newTestServer(t, nil, nil)
	conn := dial(t, srv, "map_id=1")

	send(t, conn, `{"action_type":"PlaceAttacker","frame_number":1,"current_position":{"x":3,"y":5},"attacker_id":1,"bomb_id":1}`)
	receive(t, conn)
	send(t, conn, `{"action_type":"MoveAttacker","frame_number":5,"current_position":{"x":4,"y":5}}`)
	ev := receive(t, conn)
	if !ev.IsGameOver || !strings.Contains(ev.Message, "Frame number mismatch") {
		t.Fatalf("expected frame mismatch GameOver, got %+v", ev)
	}
	expectClosed(t, conn)

	if rec := sink.wait(t); !rec.Summary.Invalidated {
		t.Fatalf("expected persisted summary to be invalidated")
	}
}

func TestInternalFaultClosesSession(t *testing.T) {
	t.Parallel()

	// The defender sits on a road stub no route reaches, so pursuit faults.
	dir := writeLayout(t, func(snap *logic.Snapshot) {
		snap.Roads = append(snap.Roads, logic.Coords{X: 0, Y: 0}, logic.Coords{X: 1, Y: 0})
		snap.Defenders = []logic.Defender{{ID: 1, Pos: logic.Coords{X: 0, Y: 0}, Damage: 5, Radius: 10, Health: 50}}
	})
	_, sink, srv := newLayoutServer(t, dir, nil, nil)
	conn := dial(t, srv, "map_id=1")

	send(t, conn, `{"action_type":"PlaceAttacker","frame_number":1,"current_position":{"x":0,"y":5},"attacker_id":1,"bomb_id":1}`)
	receive(t, conn)
	send(t, conn, `{"action_type":"MoveAttacker","frame_number":2,"current_position":{"x":1,"y":5}}`)
	expectClosed(t, conn)

	rec := sink.wait(t)
	if rec.Summary.Invalidated {
		t.Fatalf("internal fault must not be persisted as an invalidation")
	}
	last := rec.Entries[len(rec.Entries)-1]
	if last.Kind != logic.EventGameOver || !strings.Contains(string(last.Payload), "route missing") {
		t.Fatalf("expected persisted log to end with the abort reason, got %s %s", last.Kind, last.Payload)
	}
}

func TestHandshakeLimitersArePruned(t *testing.T) {
	t.Parallel()

	cfg := logic.DefaultGameConfig()
	cfg.Server.HandshakeRate = 0.1
	cfg.Server.HandshakeBurst = 1
	m := NewSessionManager(cfg, storage.FileSnapshots{Dir: t.TempDir()}, newMemorySink(), zap.NewNop())

	if !m.getLimiter("10.0.0.1").Allow() {
		t.Fatalf("expected the first handshake to pass")
	}
	for i := 0; i < maxTrackedIPs; i++ {
		m.getLimiter(fmt.Sprintf("192.168.%d.%d", i/256, i%256))
	}

	m.limiterMu.Lock()
	n := len(m.ipLimiters)
	_, kept := m.ipLimiters["10.0.0.1"]
	m.limiterMu.Unlock()
	if n > maxTrackedIPs {
		t.Fatalf("expected at most %d tracked limiters, got %d", maxTrackedIPs, n)
	}
	if !kept {
		t.Fatalf("expected the drained limiter to survive pruning")
	}
	if m.getLimiter("10.0.0.1").Allow() {
		t.Fatalf("expected the drained limiter to keep rejecting")
	}
}

func TestSessionTimesOut(t *testing.T) {
	t.Parallel()

	clock := logic.NewManualClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	_, sink, srv := newTestServer(t, func(cfg *logic.GameConfig) {
		cfg.Server.WatchdogIntervalMs = 10
	}, clock)
	conn := dial(t, srv, "map_id=1")

	clock.Advance(7 * time.Minute)
	ev := receive(t, conn)
	if ev.ResultType != logic.ResultGameOver || ev.Message != "Connection timed out" {
		t.Fatalf("expected timeout GameOver, got %s %q", ev.ResultType, ev.Message)
	}
	expectClosed(t, conn)

	rec := sink.wait(t)
	if rec.Summary.Invalidated {
		t.Fatalf("a timeout is not an anti-cheat violation")
	}
	if got := rec.EndedAt.Sub(rec.StartedAt); got != 7*time.Minute {
		t.Fatalf("expected 7m session, got %v", got)
	}
}

func TestServeWsRejections(t *testing.T) {
	t.Parallel()

	_, _, srv := newTestServer(t, nil, nil)
	cases := []struct {
		name   string
		query  string
		status int
	}{
		{name: "missing map id", query: "", status: http.StatusBadRequest},
		{name: "bad map id", query: "map_id=abc", status: http.StatusBadRequest},
		{name: "unknown map", query: "map_id=42", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + "/ws?" + tc.query)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, resp.StatusCode)
		}
	}
}

func TestHandshakeRateLimit(t *testing.T) {
	t.Parallel()

	_, _, srv := newTestServer(t, func(cfg *logic.GameConfig) {
		cfg.Server.HandshakeRate = 0.1
		cfg.Server.HandshakeBurst = 1
	}, nil)

	first, err := http.Get(srv.URL + "/ws?map_id=42")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusNotFound {
		t.Fatalf("expected first request to reach the lookup, got %d", first.StatusCode)
	}

	second, err := http.Get(srv.URL + "/ws?map_id=42")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.StatusCode)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	t.Parallel()

	_, _, srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("expected healthy, got %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/games/known")
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	var sum logic.Summary
	err = json.NewDecoder(resp.Body).Decode(&sum)
	resp.Body.Close()
	if err != nil || sum.DamagePercentage != 42 || sum.Artifacts != 7 {
		t.Fatalf("unexpected summary %+v (%v)", sum, err)
	}

	resp, err = http.Get(srv.URL + "/games/missing")
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	var list struct {
		Sessions []string `json:"sessions"`
	}
	err = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if err != nil || len(list.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %v (%v)", list.Sessions, err)
	}
}

func TestWatchdog(t *testing.T) {
	t.Parallel()

	clock := logic.NewManualClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	var (
		mu     sync.Mutex
		sent   []logic.Event
		reason string
	)
	w := &Watchdog{
		Age:      time.Minute,
		Interval: 5 * time.Millisecond,
		Clock:    clock,
		Send: func(ev logic.Event) bool {
			mu.Lock()
			sent = append(sent, ev)
			mu.Unlock()
			return true
		},
		Expire: func(r string) {
			mu.Lock()
			reason = r
			mu.Unlock()
		},
	}

	done := make(chan struct{})
	fired := make(chan bool, 1)
	go func() { fired <- w.Run(done) }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-fired:
		t.Fatalf("watchdog fired before the age was reached")
	default:
	}

	clock.Advance(time.Minute)
	select {
	case ok := <-fired:
		if !ok {
			t.Fatalf("expected watchdog to report firing")
		}
	case <-time.After(time.Second):
		t.Fatalf("watchdog did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 || sent[0].Message != "Connection timed out" || !sent[0].IsGameOver {
		t.Fatalf("expected one timeout event, got %+v", sent)
	}
	if reason != "Connection timed out" {
		t.Fatalf("expected expire reason, got %q", reason)
	}

	idle := &Watchdog{Age: time.Hour, Interval: time.Millisecond, Clock: clock, Send: w.Send, Expire: w.Expire}
	stop := make(chan struct{})
	close(stop)
	if idle.Run(stop) {
		t.Fatalf("expected a stopped session to end the watchdog quietly")
	}
}

func TestShutdownStopsLiveSessions(t *testing.T) {
	t.Parallel()

	m, sink, srv := newTestServer(t, nil, nil)
	conn := dial(t, srv, "map_id=1")
	send(t, conn, `{"action_type":"PlaceAttacker","frame_number":1,"current_position":{"x":3,"y":5},"attacker_id":1,"bomb_id":1}`)
	receive(t, conn)

	m.Shutdown("Server shutting down")
	expectClosed(t, conn)
	if rec := sink.wait(t); rec.Summary.AttackersUsed != 1 {
		t.Fatalf("expected the live session to be persisted, got %+v", rec.Summary)
	}
	if got := m.ListSessions(); len(got) != 0 {
		t.Fatalf("expected no sessions after shutdown, got %v", got)
	}
}
