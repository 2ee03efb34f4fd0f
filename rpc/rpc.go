package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"

	"github.com/wfunc/andarbahar/engine"
	"github.com/wfunc/andarbahar/game"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
	"github.com/wfunc/andarbahar/store"
)

// Server manages the RPC listener for the ops tooling.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes game inspection and recovery to operators.
// Methods follow the net/rpc signature rules.
type AdminService struct {
	store      store.StateStore
	games      *game.Manager
	dealing    *engine.DealingEngine
	settlement *engine.SettlementEngine
}

func NewAdminService(st store.StateStore, games *game.Manager, dealing *engine.DealingEngine, settlement *engine.SettlementEngine) *AdminService {
	return &AdminService{store: st, games: games, dealing: dealing, settlement: settlement}
}

type SnapshotArgs struct {
	GameID string
}

type SnapshotReply struct {
	State *models.GameState
	Bets  []*models.Bet
}

// GameSnapshot returns the live state and bets of one game.
func (a *AdminService) GameSnapshot(args *SnapshotArgs, reply *SnapshotReply) error {
	ctx := context.Background()

	state, err := a.store.GetGameState(ctx, args.GameID)
	if err != nil {
		return err
	}
	bets, err := a.store.GetAllBets(ctx, args.GameID)
	if err != nil {
		return err
	}

	reply.State = state
	reply.Bets = bets
	return nil
}

type ListGamesArgs struct{}

type ListGamesReply struct {
	GameIDs []string
}

// ListGames returns the games live on this instance.
func (a *AdminService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	reply.GameIDs = a.games.IDs()
	return nil
}

type ResetGameArgs struct {
	GameID string
}

type ResetGameReply struct {
	Success bool
}

// ResetGame cancels a stuck game, refunding every open bet.
func (a *AdminService) ResetGame(args *ResetGameArgs, reply *ResetGameReply) error {
	if err := a.dealing.ResetGame(context.Background(), args.GameID); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

type ResettleArgs struct {
	GameID string
}

type ResettleReply struct {
	BetsSettled int
	WinnersPaid int
	TotalPayout int64
	Failures    int
}

// Resettle re-runs the settlement pass for a completed game, picking up
// bets that a credit failure left open. Already-settled bets are
// skipped, so running it repeatedly is safe.
func (a *AdminService) Resettle(args *ResettleArgs, reply *ResettleReply) error {
	ctx := context.Background()

	state, err := a.store.GetGameState(ctx, args.GameID)
	if err != nil {
		return err
	}
	if !state.Winner.Valid() {
		return fmt.Errorf("game %s has no winner to settle against", args.GameID)
	}

	summary, err := a.settlement.Settle(ctx, args.GameID, state.Winner)
	if err != nil {
		return err
	}
	reply.BetsSettled = summary.BetsSettled
	reply.WinnersPaid = summary.WinnersPaid
	reply.TotalPayout = summary.TotalPayout
	reply.Failures = summary.Failures
	return nil
}
