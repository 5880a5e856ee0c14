package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"manejobot/internal/compliance"
	"manejobot/internal/extraction"
	"manejobot/internal/models"
	"manejobot/internal/normalize"
	"manejobot/internal/parsing"
)

// Extractor turns a free-form message into structured fields.
type Extractor interface {
	Extract(ctx context.Context, history []string, message string) (*models.ExtractionResult, models.Usage, error)
}

// Specialist answers technical questions that need no record.
type Specialist interface {
	Answer(ctx context.Context, history []string, question string) (string, models.Usage, error)
}

// RecordStore persists completed activity records.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec *models.Record) (int64, error)
}

// Advisor raises contextual warnings against the producer's registered
// plan (unauthorized inputs, plots in quarantine).
type Advisor interface {
	Advise(ctx context.Context, rec *models.Record) []string
}

// Controller drives one conversational turn through interpret, route and
// whichever terminal branch applies.
type Controller struct {
	extractor  Extractor
	specialist Specialist
	store      RecordStore
	advisor    Advisor
	compliance *compliance.Engine
	now        func() time.Time
}

// NewController wires the turn pipeline. advisor may be nil when no plan
// data is available (e.g. standalone deployments).
func NewController(extractor Extractor, specialist Specialist, store RecordStore, advisor Advisor, eng *compliance.Engine) *Controller {
	return &Controller{
		extractor:  extractor,
		specialist: specialist,
		store:      store,
		advisor:    advisor,
		compliance: eng,
		now:        time.Now,
	}
}

const busyReply = "⚠️ Sistema ocupado no momento. Tente novamente em alguns minutos."

// HandleTurn processes one inbound message against the conversation state.
// The caller holds the per-thread lock; the conversation is mutated in
// place and must be persisted afterwards regardless of outcome.
func (c *Controller) HandleTurn(ctx context.Context, conv *models.Conversation, message string) *models.TurnOutcome {
	text := parsing.SanitizeInput(message)
	phase := PhaseInterpret

	// Substances named in the raw text are checked before any extraction
	// work or token spend.
	if pre := c.compliance.PreCheck(text); !pre.Valid {
		conv.AppendHistory("user", text)
		conv.AppendHistory("ai", pre.Message)
		slog.Info("mensagem bloqueada na pré-checagem",
			"thread", conv.ThreadID, "base_legal", pre.LegalBase)
		return &models.TurnOutcome{
			Status:  models.OutcomeBlocked,
			Message: pre.Message,
			Data: map[string]any{
				"base_legal":     pre.LegalBase,
				"texto_original": text,
			},
		}
	}

	var turnUsage models.Usage
	result, usage, err := c.extractor.Extract(ctx, historyLines(conv), text)
	turnUsage.Add(usage)
	conv.Usage.Add(usage)

	var intent string
	extracted := map[string]string{}
	switch {
	case err == nil:
		intent = result.Intent
		extracted = result.Fields()
	case errors.Is(err, extraction.ErrMalformed):
		// The model never produced usable JSON; treat the message as a
		// question so the farmer still gets an answer.
		intent = models.IntentQuestion
		extracted[models.SlotObservation] = text
		slog.Warn("extração malformada, roteando como dúvida", "thread", conv.ThreadID)
	default:
		slog.Error("falha na extração", "thread", conv.ThreadID, "erro", err)
		conv.AppendHistory("user", text)
		return &models.TurnOutcome{Status: models.OutcomeError, Message: busyReply, Usage: usage}
	}

	conv.Intent = PreserveIntent(conv.Intent, intent)
	MergeSlots(conv.Slots, extracted)
	if t := MapActivityType(conv.Slots[models.SlotActivityType]); t != "" {
		conv.Slots[models.SlotActivityType] = t
	}
	conv.AppendHistory("user", text)

	phase, _ = Transition(phase, PhaseRoute)
	outcome := c.route(ctx, phase, conv, text, &turnUsage)
	outcome.Usage = turnUsage
	return outcome
}

func (c *Controller) route(ctx context.Context, phase Phase, conv *models.Conversation, text string, turnUsage *models.Usage) *models.TurnOutcome {
	switch conv.Intent {
	case models.IntentGreeting, "":
		conv.AppendHistory("ai", GreetingReply)
		return &models.TurnOutcome{Status: models.OutcomeSuccess, Message: GreetingReply}

	case models.IntentQuestion:
		phase, _ = Transition(phase, PhaseSpecialist)
		answer, usage, err := c.specialist.Answer(ctx, historyLines(conv), text)
		turnUsage.Add(usage)
		conv.Usage.Add(usage)
		if err != nil {
			slog.Error("falha no especialista", "thread", conv.ThreadID, "erro", err)
			return &models.TurnOutcome{Status: models.OutcomeError, Message: busyReply}
		}
		conv.AppendHistory("ai", answer)
		return &models.TurnOutcome{Status: models.OutcomeSuccess, Message: answer}

	default:
		activityType := conv.Slots[models.SlotActivityType]
		missing := MissingSlots(conv.Slots, activityType)
		if len(missing) > 0 {
			phase, _ = Transition(phase, PhaseInquiry)
			conv.MissingFields = missing
			question := InquiryQuestion(missing)
			conv.AppendHistory("ai", question)
			return &models.TurnOutcome{Status: models.OutcomeInquiry, Message: question, Data: map[string]any{
				"campos_faltantes": missing,
			}}
		}
		conv.MissingFields = nil
		phase, _ = Transition(phase, PhaseCompliance)
		return c.execute(ctx, phase, conv)
	}
}

func (c *Controller) execute(ctx context.Context, phase Phase, conv *models.Conversation) *models.TurnOutcome {
	rec := c.buildRecord(conv)

	check := c.compliance.ValidateRecord(rec)
	if !check.Valid {
		// Slots stay so a corrected follow-up can finish the registration.
		conv.AppendHistory("ai", check.Message)
		return &models.TurnOutcome{Status: models.OutcomeBlocked, Message: check.Message, Data: map[string]any{
			"base_legal": check.LegalBase,
		}}
	}
	alerts := check.Message
	if c.advisor != nil {
		if warnings := c.advisor.Advise(ctx, rec); len(warnings) > 0 {
			if alerts != "" {
				alerts += "\n"
			}
			alerts += strings.Join(warnings, "\n")
		}
	}
	if alerts != "" {
		rec.Observation = strings.TrimSpace(rec.Observation + "\n[ALERTA COMPLIANCE]: " + alerts)
	}

	if errs := normalize.ValidateItems(rec); len(errs) > 0 {
		msg := "Não consegui montar o registro: " + strings.Join(errs, "; ")
		conv.AppendHistory("ai", msg)
		return &models.TurnOutcome{Status: models.OutcomeError, Message: msg}
	}

	normalize.EnsureLot(rec, c.now())

	phase, _ = Transition(phase, PhaseExecute)
	id, err := c.store.SaveRecord(ctx, rec)
	if err != nil {
		slog.Error("falha ao salvar registro", "thread", conv.ThreadID, "erro", err)
		conv.AppendHistory("ai", busyReply)
		return &models.TurnOutcome{Status: models.OutcomeError, Message: busyReply}
	}

	item := rec.PrimaryItem()
	msg := fmt.Sprintf("✅ Registro de %s salvo: %s, %.0f %s.",
		rec.ActivityType, item.Product, item.Quantity, item.Unit)
	if alerts != "" {
		msg += "\n⚠️ (Salvo com Alerta de Compliance)"
	}
	conv.AppendHistory("ai", msg)

	// Slots are cleared only after the save is confirmed.
	conv.Slots = map[string]string{}
	conv.Intent = ""
	conv.MissingFields = nil

	slog.Info("registro salvo", "thread", conv.ThreadID, "registro", id, "tipo", rec.ActivityType)
	return &models.TurnOutcome{Status: models.OutcomeSuccess, Message: msg, RecordID: id}
}

// buildRecord assembles the activity record from the accumulated slots.
func (c *Controller) buildRecord(conv *models.Conversation) *models.Record {
	slots := conv.Slots

	activityType := MapActivityType(slots[models.SlotActivityType])
	if activityType == "" {
		activityType = models.ActivityOutro
	}

	qty := parsing.ParseQuantity(slots[models.SlotQuantityVal] + " " + slots[models.SlotQuantityUnit])
	loc := parsing.ParseLocation(slots[models.SlotLocation])

	// The extractor resolves "hoje"/"ontem" against the temporal context;
	// anything it could not date falls back to now.
	date := c.now()
	if parsed, err := parsing.ParseDateBR(slots[models.SlotDate]); err == nil {
		date = parsed
	}

	item := models.ActivityItem{
		Product:  strings.ToUpper(strings.TrimSpace(slots[models.SlotProduct])),
		Quantity: qty.Value,
		Unit:     qty.Unit,
		Location: loc,
		Role:     models.RolePrincipal,
		Origin:   slots[models.SlotOrigin],
		Crop:     slots[models.SlotCrop],
		Phase:    slots[models.SlotPhase],
	}
	if dose := parsing.ParseFloatBR(slots[models.SlotDoseValue]); dose > 0 {
		item.DoseVal = dose
		item.DoseUnit = parsing.NormalizeUnit(slots[models.SlotDoseUnit])
	}

	return &models.Record{
		PMOID:         conv.PMOID,
		ActivityType:  activityType,
		Date:          date,
		LocationText:  slots[models.SlotLocation],
		Items:         []models.ActivityItem{item},
		System:        models.SystemMonoculture,
		Observation:   slots[models.SlotObservation],
		OriginalText:  auditTrail(conv),
		Destination:   slots[models.SlotDestination],
		Origin:        slots[models.SlotOrigin],
		OperationType: slots[models.SlotOperation],
		Responsible:   conv.UserID,
	}
}

// historyLines renders the recent exchange for prompt context.
func historyLines(conv *models.Conversation) []string {
	lines := make([]string, 0, len(conv.History))
	for _, h := range conv.History {
		role := "[User]"
		if h.Role != "user" {
			role = "[AI]"
		}
		lines = append(lines, role+": "+h.Content)
	}
	return lines
}

// auditTrail condenses the conversation into the text stored with the
// record for certification review. Assistant turns are truncated so the
// trail stays readable.
func auditTrail(conv *models.Conversation) string {
	var b strings.Builder
	for _, h := range conv.History {
		content := h.Content
		if h.Role != "user" {
			content = truncateRunes(content, 200)
		}
		if h.Role == "user" {
			b.WriteString("[User]: ")
		} else {
			b.WriteString("[AI]: ")
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// truncateRunes cuts on a rune boundary so accented replies stay valid
// UTF-8 in the stored trail.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
