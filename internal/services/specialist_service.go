package services

import (
	"context"
	"strings"

	"manejobot/internal/extraction"
	"manejobot/internal/models"
)

const specialistPrompt = `Você é um agrônomo especialista em produção orgânica
certificada no Brasil (Lei 10.831, IN 46/2011, IN 64/2008). Responda dúvidas
técnicas de produtores de forma curta e prática, em português simples.
Nunca recomende insumos sintéticos proibidos na produção orgânica.
Se não tiver certeza, diga para consultar o responsável técnico.`

// SpecialistService answers technical questions through the same backend
// pool the extractor uses.
type SpecialistService struct {
	selector *extraction.Selector
}

func NewSpecialistService(selector *extraction.Selector) *SpecialistService {
	return &SpecialistService{selector: selector}
}

// Answer returns a plain-text reply to a farmer's question, with recent
// context so follow-ups make sense.
func (s *SpecialistService) Answer(ctx context.Context, history []string, question string) (string, models.Usage, error) {
	user := extraction.UserPrompt(history, question)
	answer, usage, err := s.selector.Ask(ctx, specialistPrompt, user)
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(extraction.StripFences(answer)), usage, nil
}
