package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"manejobot/internal/normalize"
	"manejobot/internal/services"
)

// RecordsHandler serves the certification review endpoints over stored
// field-notebook records.
type RecordsHandler struct {
	storage *services.StorageService
}

func NewRecordsHandler(storage *services.StorageService) *RecordsHandler {
	return &RecordsHandler{storage: storage}
}

// Get returns one record with its activity payload migrated to the
// current item-list form. ?formato=legado answers with the flat document
// the certification export consumes.
func (h *RecordsHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id inválido",
		})
	}

	rec, err := h.storage.GetRecord(c.Context(), int64(id))
	if errors.Is(err, services.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		log.Printf("❌ Erro ao carregar registro %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "erro interno",
		})
	}
	if c.Query("formato") == "legado" {
		return c.JSON(normalize.Flatten(rec))
	}
	return c.JSON(rec)
}

// RecordUpdate is the editable subset of a record. Everything else is part
// of the audit trail and only changes through a new record.
type RecordUpdate struct {
	Observation  *string  `json:"observacao"`
	Destination  *string  `json:"destino"`
	TotalValue   *float64 `json:"valor_total"`
	Status       *string  `json:"status"`
	LocationText *string  `json:"talhao_canteiro"`
}

// Update applies field edits to a record, refusing protected statuses.
func (h *RecordsHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id inválido",
		})
	}

	var upd RecordUpdate
	if err := c.BodyParser(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payload inválido",
		})
	}

	changes := map[string]any{}
	if upd.Observation != nil {
		changes["observacao"] = *upd.Observation
	}
	if upd.Destination != nil {
		changes["destino"] = *upd.Destination
	}
	if upd.TotalValue != nil {
		changes["valor_total"] = *upd.TotalValue
	}
	if upd.Status != nil {
		changes["status"] = *upd.Status
	}
	if upd.LocationText != nil {
		changes["talhao_canteiro"] = *upd.LocationText
	}
	if len(changes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "nenhum campo editável informado",
		})
	}

	err = h.storage.UpdateRecord(c.Context(), int64(id), changes)
	var protected *services.ProtectedStateError
	switch {
	case errors.As(err, &protected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": protected.Error(),
		})
	case errors.Is(err, services.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		log.Printf("❌ Erro ao atualizar registro %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "erro interno",
		})
	}
	return c.JSON(fiber.Map{"status": "atualizado", "id": id})
}
