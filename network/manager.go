package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"siege_server/logic"
	"siege_server/storage"
	"siege_server/taunt"
)

// ResultSink persists a finished session.
type ResultSink interface {
	SaveGame(ctx context.Context, rec storage.GameRecord) error
}

// SessionManager tracks live sessions and shares one route table per base
// layout between them.
type SessionManager struct {
	Config *logic.GameConfig
	Source storage.SnapshotSource
	Sink   ResultSink
	Clock  logic.Clock
	Logger *zap.Logger

	Sessions map[string]*Session
	Routes   map[int]*logic.RouteTable
	Mutex    sync.RWMutex

	limiterMu  sync.Mutex
	ipLimiters map[string]*rate.Limiter
	wg         sync.WaitGroup
}

func NewSessionManager(cfg *logic.GameConfig, source storage.SnapshotSource, sink ResultSink, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		Config:     cfg,
		Source:     source,
		Sink:       sink,
		Clock:      logic.ClockFunc(time.Now),
		Logger:     logger,
		Sessions:   make(map[string]*Session),
		Routes:     make(map[int]*logic.RouteTable),
		ipLimiters: make(map[string]*rate.Limiter),
	}
}

// maxTrackedIPs is the limiter count at which idle limiters get swept.
const maxTrackedIPs = 1024

func (m *SessionManager) getLimiter(ip string) *rate.Limiter {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	limiter, exists := m.ipLimiters[ip]
	if !exists {
		if len(m.ipLimiters) >= maxTrackedIPs {
			m.pruneLimiters(time.Now())
		}
		limiter = rate.NewLimiter(rate.Limit(m.Config.Server.HandshakeRate), m.Config.Server.HandshakeBurst)
		m.ipLimiters[ip] = limiter
	}
	return limiter
}

// pruneLimiters drops limiters whose bucket has refilled. Such a limiter
// behaves exactly like a fresh one, so forgetting it loses nothing.
// Callers hold limiterMu.
func (m *SessionManager) pruneLimiters(now time.Time) {
	before := len(m.ipLimiters)
	for ip, l := range m.ipLimiters {
		if l.TokensAt(now) >= float64(l.Burst()) {
			delete(m.ipLimiters, ip)
		}
	}
	m.Logger.Debug("pruned handshake limiters", zap.Int("before", before), zap.Int("after", len(m.ipLimiters)))
}

// routesFor returns the shared route table of a layout, building it on first use.
func (m *SessionManager) routesFor(snap *logic.Snapshot) logic.RouteOracle {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	if rt, ok := m.Routes[snap.MapID]; ok {
		return rt
	}
	size := snap.Size
	if size <= 0 {
		size = m.Config.Map.Size
	}
	rt := logic.NewRouteTable(logic.NewBaseMap(size, snap.Roads))
	m.Routes[snap.MapID] = rt
	return rt
}

// ServeWs hydrates a session for ?map_id= and upgrades the connection. All
// failures before the upgrade are plain HTTP errors.
func (m *SessionManager) ServeWs(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !m.getLimiter(ip).Allow() {
		http.Error(w, "Rate Limit", http.StatusTooManyRequests)
		return
	}

	mapID, err := strconv.Atoi(r.URL.Query().Get("map_id"))
	if err != nil {
		http.Error(w, "map_id required", http.StatusBadRequest)
		return
	}
	snap, err := m.Source.LoadSnapshot(r.Context(), mapID)
	if errors.Is(err, storage.ErrMapNotFound) {
		http.Error(w, "unknown map", http.StatusNotFound)
		return
	}
	if err != nil {
		m.Logger.Error("load snapshot", zap.Int("map_id", mapID), zap.Error(err))
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	logger := m.Logger.With(zap.String("game_id", id), zap.Int("map_id", mapID))
	engine, err := logic.NewEngine(snap, logic.Deps{
		Config: m.Config,
		Routes: m.routesFor(snap),
		Clock:  m.Clock,
		Taunts: taunt.New(taunt.FromGameConfig(m.Config)),
		Logger: logger,
	})
	if err != nil {
		logger.Error("hydrate session", zap.Error(err))
		http.Error(w, "invalid base layout", http.StatusInternalServerError)
		return
	}

	startedAt := m.Clock.Now()
	conn, err := Upgrader.Upgrade(w, r, http.Header{"X-Session-Id": []string{id}})
	if err != nil {
		logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	s := &Session{
		ID:        id,
		MapID:     mapID,
		Engine:    engine,
		StartedAt: startedAt,
		logger:    logger,
	}
	s.client = newClient(s, conn, m.Config, logger)
	s.watchdog = &Watchdog{
		Start:    startedAt,
		Age:      m.Config.GameAge(),
		Interval: time.Duration(m.Config.Server.WatchdogIntervalMs) * time.Millisecond,
		Clock:    m.Clock,
		Send:     s.client.SendEvent,
		Expire:   s.client.stop,
	}

	m.register(s)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.run(int64(m.Config.Server.MaxMessageBytes))
		m.finish(s)
	}()
}

func (m *SessionManager) register(s *Session) {
	m.Mutex.Lock()
	m.Sessions[s.ID] = s
	m.Mutex.Unlock()
	s.logger.Info("session started")
}

// finish persists the summary and replay, then forgets the session.
func (m *SessionManager) finish(s *Session) {
	defer func() {
		m.Mutex.Lock()
		delete(m.Sessions, s.ID)
		m.Mutex.Unlock()
	}()
	if m.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec := storage.GameRecord{
		GameID:    s.ID,
		MapID:     s.MapID,
		StartedAt: s.StartedAt,
		EndedAt:   m.Clock.Now(),
		Summary:   s.Engine.Summary(),
		Entries:   s.Engine.Log(),
	}
	if err := m.Sink.SaveGame(ctx, rec); err != nil {
		s.logger.Error("persist session", zap.Error(err))
	}
}

// ListSessions returns the ids of live sessions, sorted.
func (m *SessionManager) ListSessions() []string {
	m.Mutex.RLock()
	defer m.Mutex.RUnlock()
	keys := make([]string, 0, len(m.Sessions))
	for k := range m.Sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Shutdown stops every live session and waits until each one has persisted.
func (m *SessionManager) Shutdown(reason string) {
	m.Mutex.RLock()
	for _, s := range m.Sessions {
		s.client.stop(reason)
	}
	m.Mutex.RUnlock()
	m.wg.Wait()
}
