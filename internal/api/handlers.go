package api

import (
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/shopspring/decimal"
)

type startRequest struct {
	Decks   *int `json:"decks"`
	Players *int `json:"players"`
}

type betRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleList(c *gin.Context) {
	recs, err := s.manager.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]GameState, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewGameState(rec))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decks, players := 1, 1
	if req.Decks != nil {
		decks = *req.Decks
	}
	if req.Players != nil {
		players = *req.Players
	}
	if players < 1 || players > game.MaxPlayers {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Player count must be between 1 and 7"})
		return
	}
	if decks < 1 || decks > game.MaxDecks {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deck count must be between 1 and 8"})
		return
	}

	rec, err := s.manager.Start(c.Request.Context(), decks, players)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewGameState(rec))
}

// sessionID returns the validated :id parameter. Anything that is not a uuid
// cannot name a session.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrNotFound.Error()})
		return "", false
	}
	return id, true
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	rec, err := s.manager.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewGameState(rec))
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := s.manager.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	s.hub.closeSession(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleBet(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req betRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.manager.PlaceBet(c.Request.Context(), id, req.Amount)
	s.respond(c, rec, err)
}

func (s *Server) handleDeal(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	rec, err := s.manager.Deal(c.Request.Context(), id)
	s.respond(c, rec, err)
}

// handleAction serves hit, stand, double and split, named by the last path segment
func (s *Server) handleAction(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	action, err := game.ParseAction(path.Base(c.FullPath()))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.manager.Act(c.Request.Context(), id, action)
	s.respond(c, rec, err)
}

func (s *Server) handleNewHand(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	rec, err := s.manager.NewHand(c.Request.Context(), id)
	s.respond(c, rec, err)
}

// respond writes the new state and pushes it to websocket watchers
func (s *Server) respond(c *gin.Context, rec *session.Record, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	state := NewGameState(rec)
	s.hub.broadcast(rec.ID, stateMessage(state))
	c.JSON(http.StatusOK, state)
}
