// Package api is the REST collaborator surface next to the socket
// server: thin gin handlers over the same engines, for the admin panels
// that drive games over HTTP. No business logic lives here.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wfunc/andarbahar/engine"
	"github.com/wfunc/andarbahar/logger"
	"github.com/wfunc/andarbahar/models"
)

type API struct {
	betting *engine.BettingEngine
	dealing *engine.DealingEngine
}

// New wires the REST surface over the same engines the socket server
// uses; the engines broadcast their own deltas, so nothing here does.
func New(betting *engine.BettingEngine, dealing *engine.DealingEngine) *API {
	return &API{betting: betting, dealing: dealing}
}

// Router builds the gin engine with the game control routes mounted.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	gameGroup := router.Group("/api/game")
	{
		gameGroup.POST("/update-timer", a.updateTimer)
		gameGroup.POST("/submit-bets", a.submitBets)
		gameGroup.POST("/deal-card", a.dealCard)
		gameGroup.POST("/reset-game", a.resetGame)
	}
	return router
}

// Start serves the REST API on its own listener.
func (a *API) Start(addr string) {
	go func() {
		if err := a.Router().Run(addr); err != nil {
			logger.Log.Errorf("REST API server stopped: %v", err)
		}
	}()
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func respondEngineError(c *gin.Context, err error) {
	if e, ok := engine.AsError(err); ok {
		status := http.StatusBadRequest
		switch e.Code {
		case engine.CodeGameNotFound, engine.CodeUserNotFound:
			status = http.StatusNotFound
		case engine.CodeUnauthorized:
			status = http.StatusForbidden
		case engine.CodeServiceUnavailable:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, statusResponse{Success: false, Message: e.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, statusResponse{Success: false, Message: "internal error"})
}

type updateTimerRequest struct {
	GameID string `json:"game_id" binding:"required"`
	Timer  int    `json:"timer"`
}

func (a *API) updateTimer(c *gin.Context) {
	var req updateTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Success: false, Message: err.Error()})
		return
	}

	if _, err := a.dealing.SetCountdown(c.Request.Context(), req.GameID, req.Timer); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true})
}

type submitBetsRequest struct {
	GameID string      `json:"game_id" binding:"required"`
	UserID int64       `json:"user_id" binding:"required"`
	Side   models.Side `json:"side" binding:"required"`
	Amount int64       `json:"amount" binding:"required"`
	Round  int         `json:"round" binding:"required"`
}

func (a *API) submitBets(c *gin.Context) {
	var req submitBetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Success: false, Message: err.Error()})
		return
	}

	result, err := a.betting.PlaceBet(c.Request.Context(), req.UserID, req.GameID, req.Side, req.Amount, req.Round)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse{Success: true, Message: result.Message})
}

type dealCardRequest struct {
	GameID   string      `json:"game_id" binding:"required"`
	Card     string      `json:"card" binding:"required"`
	Side     models.Side `json:"side" binding:"required"`
	Position int         `json:"position"`
	AdminID  int64       `json:"admin_id" binding:"required"`
}

func (a *API) dealCard(c *gin.Context) {
	var req dealCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Success: false, Message: err.Error()})
		return
	}

	if _, err := a.dealing.DealCard(c.Request.Context(), req.GameID, req.Card, req.Side, req.Position, req.AdminID); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true})
}

type resetGameRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

func (a *API) resetGame(c *gin.Context) {
	var req resetGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Success: false, Message: err.Error()})
		return
	}

	if err := a.dealing.ResetGame(c.Request.Context(), req.GameID); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true})
}
