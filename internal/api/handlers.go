package api

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/chainarcade/replay-go/internal/games"
	"github.com/chainarcade/replay-go/internal/leaderboard"
	"github.com/chainarcade/replay-go/internal/ledger"
	"github.com/chainarcade/replay-go/internal/replay"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"games": games.List()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return
	}
	if req.Player == "" {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "player is required", nil)
		return
	}
	g, ok := games.Get(req.Game)
	if !ok {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "unknown game", map[string]interface{}{"game": req.Game})
		return
	}
	paid, err := decimal.NewFromString(req.FeePaid)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid fee_paid", nil)
		return
	}

	seed := req.Seed
	if seed == 0 {
		seed = randomSeed()
	}
	payload := g.GenesisPayload(seed)

	gameID, refund, err := s.ledger.Start(r.Context(), req.Player, req.Game, seed, payload, paid)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, StartResponse{
		GameID:  gameID,
		Seed:    seed,
		Payload: payload,
		Refund:  refund.String(),
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return
	}
	// Completion acts on behalf of the session's player; the admin
	// token on this route is the authorization.
	sess, err := s.ledger.GetSession(r.Context(), gameID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if err := s.ledger.Complete(r.Context(), sess.Player, gameID, req.Score, req.Moves); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"game_id": gameID, "status": ledger.StatusCompleted})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	sess, err := s.ledger.GetSession(r.Context(), gameID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	events, times, err := s.ledger.Events(r.Context(), gameID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	type row struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
		RecordedAt time.Time         `json:"recorded_at"`
	}
	out := make([]row, len(events))
	for i, ev := range events {
		out[i] = row{Type: ev.Type, Attributes: ev.Attributes, RecordedAt: times[i]}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"events": out})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	sess, err := s.ledger.GetSessionWithPayload(r.Context(), gameID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	res, err := replay.Verify(sess)
	if err != nil {
		if errors.Is(err, replay.ErrNotCompleted) {
			s.writeError(w, http.StatusConflict, ErrTypeConflict, "session is not completed", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	sess, err := s.ledger.ActiveSession(r.Context(), player)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if sess == nil {
		s.writeError(w, http.StatusNotFound, ErrTypeNotFound, "no active session", map[string]interface{}{"player": player})
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	page, err := s.ledger.History(r.Context(), player, limit, offset)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePlayerGames(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	ids, err := s.ledger.PlayerGames(r.Context(), player)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"player": player, "game_ids": ids})
}

func (s *Server) handleLeaderboardTop(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.scores.Top(r.Context(), game, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, ErrTypeInternal, err.Error(), nil)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"game": game, "entries": entries})
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var req SaveScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return
	}
	res, err := s.scores.Save(r.Context(), leaderboard.Entry{
		Player: req.Player,
		Game:   req.Game,
		GameID: req.GameID,
		Score:  req.Score,
		TxHash: req.TxHash,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, err.Error(), nil)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	var req SetFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body", nil)
		return
	}
	fee, err := decimal.NewFromString(req.Fee)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid fee", nil)
		return
	}
	if err := s.ledger.SetFee(r.Context(), s.owner, fee); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AmountResponse{Amount: fee.String()})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AmountResponse{Amount: bal.String()})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.ledger.Withdraw(r.Context(), s.owner)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AmountResponse{Amount: amount.String()})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	amount, err := s.ledger.Sweep(r.Context(), s.owner, token)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AmountResponse{Amount: amount.String()})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeValidation, "invalid session id", nil)
		return 0, false
	}
	return id, true
}

// writeLedgerError maps ledger sentinels to HTTP statuses.
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, ErrTypeNotFound, "session not found", nil)
	case errors.Is(err, ledger.ErrInsufficientFee):
		s.writeError(w, http.StatusPaymentRequired, ErrTypePayment, "start fee not covered", nil)
	case errors.Is(err, ledger.ErrUnauthorized):
		s.writeError(w, http.StatusForbidden, ErrTypeUnauthorized, "caller is not the owner", nil)
	case errors.Is(err, ledger.ErrNotActive):
		s.writeError(w, http.StatusConflict, ErrTypeConflict, "session is not active", nil)
	case errors.Is(err, ledger.ErrNothingToWithdraw):
		s.writeError(w, http.StatusConflict, ErrTypeConflict, "nothing to withdraw", nil)
	default:
		s.logger.Printf("internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, ErrTypeInternal, "internal error", nil)
	}
}

func randomSeed() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	seed := binary.BigEndian.Uint32(b[:])
	if seed == 0 {
		seed = 1
	}
	return seed
}
