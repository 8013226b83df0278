package ledger

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Event types raised by ledger operations.
const (
	EventStarted   = "session_started"
	EventAbandoned = "session_abandoned"
	EventCompleted = "session_completed"
	EventFeeSet    = "fee_updated"
	EventWithdrawn = "fees_withdrawn"
	EventSwept     = "tokens_swept"
)

// Event is the common shape of everything the ledger announces. Each
// event has a type and a flat set of string attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Emitter receives events after the transaction that produced them has
// committed. A nil emitter silently drops them.
type Emitter func(Event)

func (e Event) attrJSON() string {
	b, _ := json.Marshal(e.Attributes)
	return string(b)
}

func parseAttrs(raw string) map[string]string {
	out := make(map[string]string)
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func startedEvent(gameID int64, player string, refund decimal.Decimal) Event {
	return Event{Type: EventStarted, Attributes: map[string]string{
		"game_id": strconv.FormatInt(gameID, 10),
		"player":  player,
		"refund":  refund.String(),
	}}
}

func abandonedEvent(gameID int64, player string) Event {
	return Event{Type: EventAbandoned, Attributes: map[string]string{
		"game_id": strconv.FormatInt(gameID, 10),
		"player":  player,
	}}
}

func completedEvent(gameID int64, player string, score int64) Event {
	return Event{Type: EventCompleted, Attributes: map[string]string{
		"game_id": strconv.FormatInt(gameID, 10),
		"player":  player,
		"score":   strconv.FormatInt(score, 10),
	}}
}
