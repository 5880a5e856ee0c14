package models

import "time"

// Intents produced by the interpreter. "Strong" intents start or continue a
// slot-filling flow; a greeting never overrides one.
const (
	IntentExecution = "execucao"
	IntentPlanning  = "planejamento"
	IntentQuestion  = "duvida"
	IntentGreeting  = "saudacao"
)

// StrongIntents are the intents preserved across a weak/greeting turn.
var StrongIntents = []string{
	IntentExecution, IntentPlanning, IntentQuestion,
	"manejo", "plantio", "colheita",
}

// IsStrongIntent reports whether intent keeps an in-progress flow alive.
func IsStrongIntent(intent string) bool {
	for _, s := range StrongIntents {
		if s == intent {
			return true
		}
	}
	return false
}

// Slot keys accumulated across turns.
const (
	SlotProduct      = "produto"
	SlotQuantityVal  = "quantidade_valor"
	SlotQuantityUnit = "quantidade_unidade"
	SlotLocation     = "talhao_canteiro"
	SlotDestination  = "destino"
	SlotOrigin       = "origem"
	SlotOperation    = "tipo_operacao"
	SlotObservation  = "observacao"
	SlotActivityType = "tipo_atividade"
	SlotDate         = "data"
	SlotDoseValue    = "dose_valor"
	SlotDoseUnit     = "dose_unidade"
	SlotCrop         = "cultura"
	SlotPhase        = "fase"
)

// Usage accumulates extraction token counts for billing.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" bson:"completion_tokens"`
}

// Add folds another usage sample into the accumulator.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// HistoryEntry is one retained conversation message for the audit trail.
type HistoryEntry struct {
	Role    string    `json:"role" bson:"role"` // "user" or "ai"
	Content string    `json:"content" bson:"content"`
	At      time.Time `json:"at" bson:"at"`
}

// MaxHistory bounds the retained message window used to build the audit
// observation on execute.
const MaxHistory = 10

// Conversation is the per-thread dialogue state. It is read-modify-written
// atomically per thread by the conversation service.
type Conversation struct {
	ThreadID string `json:"thread_id" bson:"_id"`
	UserID   string `json:"user_id" bson:"user_id"`
	PMOID    int64  `json:"pmo_id" bson:"pmo_id"`

	Intent        string            `json:"intent,omitempty" bson:"intent,omitempty"`
	Slots         map[string]string `json:"slots" bson:"slots"`
	MissingFields []string          `json:"missing_fields,omitempty" bson:"missing_fields,omitempty"`
	History       []HistoryEntry    `json:"history,omitempty" bson:"history,omitempty"`
	Usage         Usage             `json:"usage" bson:"usage"`

	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewConversation creates empty state for a new thread.
func NewConversation(threadID, userID string, pmoID int64) *Conversation {
	return &Conversation{
		ThreadID: threadID,
		UserID:   userID,
		PMOID:    pmoID,
		Slots:    make(map[string]string),
	}
}

// AppendHistory adds an entry and trims the window to MaxHistory.
func (c *Conversation) AppendHistory(role, content string) {
	c.History = append(c.History, HistoryEntry{Role: role, Content: content, At: time.Now()})
	if len(c.History) > MaxHistory {
		c.History = c.History[len(c.History)-MaxHistory:]
	}
}

// TurnOutcome is the typed result of one agent turn. Every public entry point
// returns one of these; collaborator errors never propagate raw.
type TurnOutcome struct {
	Status   string            `json:"status"` // success | inquiry | blocked | error
	Message  string            `json:"message,omitempty"`
	Data     map[string]any    `json:"data,omitempty"`
	RecordID int64             `json:"record_id,omitempty"`
	Usage    Usage             `json:"usage"`
}

// Turn outcome statuses.
const (
	OutcomeSuccess = "success"
	OutcomeInquiry = "inquiry"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)
