package agent

import (
	"fmt"

	"manejobot/internal/models"
)

// Canned replies for turns that need no extraction work.
const (
	GreetingReply = "Olá! Sou seu assistente de manejo. Posso ajudar com registros ou dúvidas técnicas."

	HelpReply = "Você pode me enviar relatos como:\n" +
		"• \"Colhi 20kg de tomate no Talhão 2\"\n" +
		"• \"Plantei 50 mudas de alface no canteiro 3\"\n" +
		"• \"Apliquei 10L de biofertilizante na horta\"\n" +
		"Também respondo dúvidas técnicas sobre manejo orgânico."

	UnknownUserReply = "Não encontrei seu cadastro. Fale com o responsável pelo PMO da sua unidade para liberar o acesso."
)

// slotQuestions maps each required slot to the question that fills it.
var slotQuestions = map[string]string{
	models.SlotProduct:      "qual produto ou insumo foi utilizado?",
	models.SlotQuantityVal:  "qual foi a quantidade (número)?",
	models.SlotQuantityUnit: "qual a unidade de medida (kg, litros)?",
	models.SlotLocation:     "em qual local (talhão/canteiro) isso foi realizado?",
}

// baseRequired is asked for in this order; location is appended only for
// field activities.
var baseRequired = []string{
	models.SlotProduct,
	models.SlotQuantityVal,
	models.SlotQuantityUnit,
}

// RequiredSlots returns the slots a registration needs before it can be
// executed. Plot-bound activities (plantio, manejo, colheita and anything
// not yet classified) also need a location; commercial movements do not.
func RequiredSlots(activityType string) []string {
	required := append([]string{}, baseRequired...)
	switch activityType {
	case models.ActivityPlantio, models.ActivityManejo, models.ActivityColheita, "":
		required = append(required, models.SlotLocation)
	}
	return required
}

// MissingSlots lists the required slots still unfilled, in asking order.
func MissingSlots(slots map[string]string, activityType string) []string {
	var missing []string
	for _, key := range RequiredSlots(activityType) {
		if slots[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// InquiryQuestion builds the follow-up question for the first missing slot.
func InquiryQuestion(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	q, ok := slotQuestions[missing[0]]
	if !ok {
		q = fmt.Sprintf("pode informar o campo '%s'?", missing[0])
	}
	return "Entendi. Para registrar, " + q
}
