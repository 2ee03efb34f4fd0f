package server

import (
	"context"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/andarbahar/broadcast"
	"github.com/wfunc/andarbahar/config"
	"github.com/wfunc/andarbahar/engine"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/monitor"
	"github.com/wfunc/andarbahar/network"
	"github.com/wfunc/andarbahar/persistence"
	"github.com/wfunc/andarbahar/services"
	"github.com/wfunc/andarbahar/session"
	"github.com/wfunc/andarbahar/store"
	"github.com/wfunc/andarbahar/timer"

	gamerpc "github.com/wfunc/andarbahar/rpc"
)

// GameServer ties the engines to the socket transport: it owns the
// session registry, the live game registry, the countdown timers, and
// the message router.
type GameServer struct {
	cfg      *config.Config
	upgrader websocket.Upgrader

	sessions    *session.Manager
	games       *game.Manager
	broadcaster broadcast.Broadcaster
	store       store.StateStore

	betting    *engine.BettingEngine
	dealing    *engine.DealingEngine
	settlement *engine.SettlementEngine

	timers  *timer.Manager
	monitor *monitor.Monitor

	rpcServer    *gamerpc.Server
	shutdownChan chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database, st store.StateStore) *GameServer {
	sessions := session.NewManager()
	games := game.NewManager()
	wallet := services.NewWalletService(db)

	broadcaster := broadcast.NewGameBroadcaster(sessions)
	settlement := engine.NewSettlementEngine(st, db, wallet, games, cfg.Game)
	s := &GameServer{
		cfg:         cfg,
		sessions:    sessions,
		games:       games,
		broadcaster: broadcaster,
		store:       st,
		betting:     engine.NewBettingEngine(st, db, wallet, games, broadcaster, cfg.Game),
		dealing:     engine.NewDealingEngine(st, db, wallet, games, broadcaster, cfg.Game, settlement),
		settlement:  settlement,
		timers:      timer.NewManager(),
		monitor:     monitor.NewMonitor("andarbahar"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // cross-origin handled upstream
			},
		},
		shutdownChan: make(chan struct{}),
	}

	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := gamerpc.NewAdminService(st, games, s.dealing, s.settlement)
	rpc.Register(adminService)

	return s
}

// Engines exposes the dealing/betting engines to the REST layer.
func (s *GameServer) Engines() (*engine.BettingEngine, *engine.DealingEngine) {
	return s.betting, s.dealing
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.WSAddress)
	return http.ListenAndServe(s.cfg.Server.WSAddress, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessions.Add(sess)
	s.monitor.IncConnectedClients()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.dropSession(sess)
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			env, err := conn.ReadEnvelope()
			if err != nil {
				return
			}
			started := time.Now()
			s.handleEnvelope(sess, env)
			s.monitor.ObserveMessageLatency(time.Since(started))
		}
	}
}

// dropSession removes a disconnected client from the subscriber set.
// The client must re-subscribe and request a snapshot on reconnect;
// nothing is queued for it while it is gone.
func (s *GameServer) dropSession(sess *session.Session) {
	if gameID := sess.SubscribedGame(); gameID != "" && sess.Authenticated() {
		if err := s.store.RemovePlayer(context.Background(), gameID, sess.GetUserID()); err != nil {
			logger.Log.Debugf("presence cleanup for session %s: %v", sess.GetID(), err)
		}
	}
	s.sessions.Remove(sess.GetID())
	s.monitor.DecConnectedClients()
}
