package api

// Error type constants for structured error responses
const (
	ErrTypeValidation   = "VALIDATION_ERROR"
	ErrTypeNotFound     = "NOT_FOUND"
	ErrTypeUnauthorized = "UNAUTHORIZED"
	ErrTypeConflict     = "CONFLICT"
	ErrTypePayment      = "PAYMENT_REQUIRED"
	ErrTypeInternal     = "INTERNAL_ERROR"
)

// EngineError is the structured error envelope returned on failures.
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

func (e EngineError) Error() string {
	return e.Type + ": " + e.Message
}

// StartRequest begins a session for a player.
type StartRequest struct {
	Player  string `json:"player"`
	Game    string `json:"game"`
	FeePaid string `json:"fee_paid"`
	// Seed is optional; when zero a random seed is drawn server-side.
	Seed uint32 `json:"seed,omitempty"`
}

// StartResponse reports the created session.
type StartResponse struct {
	GameID  int64  `json:"game_id"`
	Seed    uint32 `json:"seed"`
	Payload []byte `json:"payload"`
	Refund  string `json:"refund"`
}

// CompleteRequest closes out an active session with its move log.
type CompleteRequest struct {
	Score int64  `json:"score"`
	Moves []byte `json:"moves"`
}

// SetFeeRequest updates the session start fee.
type SetFeeRequest struct {
	Fee string `json:"fee"`
}

// AmountResponse reports a single decimal amount.
type AmountResponse struct {
	Amount string `json:"amount"`
}

// SaveScoreRequest submits a score to the leaderboard sink.
type SaveScoreRequest struct {
	Player string `json:"player"`
	Game   string `json:"game"`
	GameID int64  `json:"game_id"`
	Score  int64  `json:"score"`
	TxHash string `json:"tx_hash"`
}
