package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/lobby"
	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/monitor"
	"github.com/wfunc/broinkroyale/network"
	"github.com/wfunc/broinkroyale/session"
)

//go:embed status.html
var statusPage string

var statusTemplate = template.Must(template.New("status").Parse(statusPage))

// Options wires a GameServer.
type Options struct {
	Addr           string
	Heartbeat      time.Duration
	IdleTimeout    time.Duration
	Registry       *lobby.Registry
	SessionManager *session.Manager
	Monitor        *monitor.Monitor
}

type GameServer struct {
	addr           string
	heartbeat      time.Duration
	idleTimeout    time.Duration
	upgrader       websocket.Upgrader
	registry       *lobby.Registry
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

func NewGameServer(opts Options) *GameServer {
	s := &GameServer{
		addr:           opts.Addr,
		heartbeat:      opts.Heartbeat,
		idleTimeout:    opts.IdleTimeout,
		registry:       opts.Registry,
		sessionManager: opts.SessionManager,
		monitor:        opts.Monitor,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler routes the status page, health check, metrics, lobby list and
// the websocket endpoint.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/lobbies", s.handleLobbies)
	mux.Handle("/metrics", s.monitor.Handler())
	mux.Handle("/debug/vars", s.monitor.VarsHandler())
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until Shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.addr)
	if s.idleTimeout > 0 {
		go s.idleLoop()
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes every session. Their
// read loops then run the usual disconnect cleanup.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	err := s.httpServer.Shutdown(ctx)
	for _, sess := range s.sessionManager.All() {
		sess.Close()
	}
	return err
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := struct {
		Sessions int
		Lobbies  []lobby.Summary
	}{
		Sessions: s.sessionManager.Count(),
		Lobbies:  s.registry.Summaries(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, data); err != nil {
		logger.Log.Errorf("render status page: %v", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *GameServer) handleLobbies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.Summaries()); err != nil {
		logger.Log.Errorf("encode lobbies: %v", err)
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveLobby(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			start := time.Now()
			s.handlePacket(sess, packet)
			s.monitor.IncMessagesReceived(packet.MsgID)
			s.monitor.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Touch above is all a heartbeat does
	case network.MsgTypeJoinLobby:
		s.handleJoinLobby(sess, packet)
	case network.MsgTypeLeaveLobby:
		s.leaveLobby(sess)
	case network.MsgTypeInput:
		s.handleInput(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleJoinLobby(sess *session.Session, packet *network.Packet) {
	var req network.JoinLobbyRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			logger.Log.Warnf("Session %s sent a malformed join: %v", sess.GetID(), err)
			s.sendJoinError(sess, "malformed request")
			return
		}
	}

	// 同一时间只能在一个大厅里, the old lobby is left only if the new join succeeds
	current := sess.LobbyID()
	l, err := s.registry.Switch(current, req.LobbyID, sess.GetID())
	if err != nil {
		logger.Log.Infof("Session %s rejected from lobby %q: %v", sess.GetID(), req.LobbyID, err)
		s.sendJoinError(sess, err.Error())
		return
	}
	sess.SetLobbyID(l.ID)
	if current != "" {
		logger.Log.Infof("Session %s left lobby %s", sess.GetID(), current)
	}
	logger.Log.Infof("Session %s joined lobby %s", sess.GetID(), l.ID)
}

func (s *GameServer) sendJoinError(sess *session.Session, reason string) {
	s.monitor.IncJoinRejection(reason)
	data, _ := json.Marshal(network.JoinError{Reason: reason})
	if err := sess.Send(network.MsgTypeJoinError, data); err != nil {
		logger.Log.Debugf("send joinError to %s: %v", sess.GetID(), err)
	}
}

// leaveLobby is shared by explicit leave and disconnect.
func (s *GameServer) leaveLobby(sess *session.Session) {
	lobbyID := sess.LobbyID()
	if lobbyID == "" {
		return
	}
	sess.SetLobbyID("")
	if s.registry.Leave(lobbyID, sess.GetID()) {
		logger.Log.Infof("Session %s left lobby %s", sess.GetID(), lobbyID)
	}
}

func (s *GameServer) idleLoop() {
	ticker := time.NewTicker(s.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdownChan:
			return
		case now := <-ticker.C:
			s.reapIdle(now)
		}
	}
}

// reapIdle closes sessions that sent no packet within idleTimeout. Pongs keep
// the socket open but do not count. The read loop does the lobby cleanup.
func (s *GameServer) reapIdle(now time.Time) int {
	n := 0
	for _, sess := range s.sessionManager.All() {
		if now.Sub(sess.LastActive()) > s.idleTimeout {
			logger.Log.Infof("Session %s idle since %s, closing", sess.GetID(), sess.LastActive().Format(time.RFC3339))
			sess.Close()
			n++
		}
	}
	return n
}

func (s *GameServer) handleInput(sess *session.Session, packet *network.Packet) {
	lobbyID := sess.LobbyID()
	if lobbyID == "" {
		return
	}
	var in network.InputMessage
	if err := json.Unmarshal(packet.Data, &in); err != nil {
		logger.Log.Debugf("Session %s sent malformed input: %v", sess.GetID(), err)
		return
	}
	s.registry.SetInput(lobbyID, sess.GetID(), game.Input{X: in.X, Z: in.Z})
}
