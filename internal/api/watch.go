package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chainarcade/replay-go/internal/games"
	"github.com/chainarcade/replay-go/internal/replay"
)

// watchFrame is one step of a streamed replay.
type watchFrame struct {
	Index int         `json:"index"`
	Total int         `json:"total"`
	Score int64       `json:"score"`
	Done  bool        `json:"done"`
	State games.State `json:"state"`
}

const defaultWatchInterval = 250 * time.Millisecond

// handleWatch streams a completed session's replay over a websocket,
// one frame per move. The client controls pacing with ?interval_ms=.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	sess, err := s.ledger.GetSessionWithPayload(r.Context(), gameID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	rep, err := replay.Load(sess)
	if err != nil {
		s.writeError(w, http.StatusConflict, ErrTypeConflict, err.Error(), nil)
		return
	}
	g, _ := games.Get(sess.Game)

	interval := defaultWatchInterval
	if ms, err := strconv.Atoi(r.URL.Query().Get("interval_ms")); err == nil && ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("watch upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Genesis frame first so the client can draw the initial board.
	if err := conn.WriteJSON(watchFrame{
		Index: 0,
		Total: rep.Len(),
		Score: g.Score(rep.State()),
		State: rep.State(),
	}); err != nil {
		return
	}

	var writeErr error
	err = rep.Play(r.Context(), interval, func(index int, st games.State) {
		if writeErr != nil {
			rep.Pause()
			return
		}
		writeErr = conn.WriteJSON(watchFrame{
			Index: index,
			Total: rep.Len(),
			Score: g.Score(st),
			Done:  index == rep.Len(),
			State: st,
		})
		if writeErr != nil {
			rep.Pause()
		}
	})
	if err != nil || writeErr != nil {
		return
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished"))
}
