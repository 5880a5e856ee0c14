package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"manejobot/internal/agent"
	"manejobot/internal/models"
	"manejobot/internal/services"
)

// InboundMessage is the payload the messaging gateway posts for each
// received message.
type InboundMessage struct {
	ThreadID    string `json:"thread_id"`
	Sender      string `json:"sender"`
	MessageText string `json:"message_text"`
	IsAudio     bool   `json:"is_audio"`
	AudioURL    string `json:"audio_url,omitempty"`
}

// WebhookHandler receives gateway messages and runs them through the
// conversational pipeline.
type WebhookHandler struct {
	controller    *agent.Controller
	conversations *services.ConversationService
	storage       *services.StorageService
	quota         *services.QuotaService
	metrics       *services.Metrics
}

func NewWebhookHandler(
	controller *agent.Controller,
	conversations *services.ConversationService,
	storage *services.StorageService,
	quota *services.QuotaService,
	metrics *services.Metrics,
) *WebhookHandler {
	return &WebhookHandler{
		controller:    controller,
		conversations: conversations,
		storage:       storage,
		quota:         quota,
		metrics:       metrics,
	}
}

// HandleMessage processes one inbound message end to end and answers with
// the turn outcome.
func (h *WebhookHandler) HandleMessage(c *fiber.Ctx) error {
	started := time.Now()

	var msg InboundMessage
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payload inválido",
		})
	}
	if msg.ThreadID == "" || msg.Sender == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "thread_id e sender são obrigatórios",
		})
	}
	text := strings.TrimSpace(msg.MessageText)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message_text vazio",
		})
	}

	pmoID, producer, err := h.storage.FindProducerByPhone(c.Context(), msg.Sender)
	if errors.Is(err, services.ErrUnknownSender) {
		return c.JSON(models.TurnOutcome{
			Status:  models.OutcomeError,
			Message: agent.UnknownUserReply,
		})
	}
	if err != nil {
		log.Printf("❌ Erro ao resolver remetente %s: %v", msg.Sender, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "erro interno",
		})
	}

	var outcome *models.TurnOutcome
	err = h.conversations.WithThread(c.Context(), msg.ThreadID, producer, pmoID, func(conv *models.Conversation) error {
		outcome = h.controller.HandleTurn(c.Context(), conv, text)
		return nil
	})
	if errors.Is(err, services.ErrThreadBusy) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Ainda estou processando sua mensagem anterior. Um momento.",
		})
	}
	if err != nil {
		log.Printf("❌ Erro no turno da thread %s: %v", msg.ThreadID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "erro interno",
		})
	}

	h.quota.Track(pmoID, outcome.Usage)
	if h.metrics != nil {
		h.metrics.TurnsTotal.WithLabelValues(outcome.Status).Inc()
		h.metrics.TurnDuration.Observe(time.Since(started).Seconds())
		if outcome.Status == models.OutcomeBlocked {
			h.metrics.ComplianceBlocks.WithLabelValues("turn").Inc()
		}
	}

	return c.JSON(outcome)
}
