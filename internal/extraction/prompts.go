package extraction

import (
	"fmt"
	"strings"
	"time"
)

var saoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}()

const basePrompt = `Você é um extrator de dados de relatos agrícolas em português.
Responda SOMENTE com um objeto JSON com os campos:
"intencao" (execucao, planejamento, duvida ou saudacao),
"tipo_atividade" (Plantio, Manejo, Colheita, Insumo, Venda, Compra ou Outro),
"produto", "quantidade_valor", "quantidade_unidade", "talhao_canteiro",
"data" (DD/MM/AAAA), "destino", "origem", "tipo_operacao", "observacao",
"dose_valor", "dose_unidade", "cultura", "fase".
Omita campos não mencionados ou use string vazia. Nunca invente valores.`

const correctionPrompt = basePrompt + `
A resposta anterior não era um JSON válido. Responda apenas o objeto JSON,
sem texto antes ou depois, sem blocos de código.`

const minimalPrompt = `Extraia de um relato agrícola um JSON com os campos
"intencao", "tipo_atividade", "produto", "quantidade_valor",
"quantidade_unidade" e "talhao_canteiro". Apenas o JSON.`

// SystemPrompt returns the prompt for a given attempt (0-based). Attempts
// escalate from the full schema to a correction nudge to a minimal schema.
func SystemPrompt(attempt int, now time.Time) string {
	var prompt string
	switch {
	case attempt <= 0:
		prompt = basePrompt
	case attempt == 1:
		prompt = correctionPrompt
	default:
		prompt = minimalPrompt
	}
	return prompt + "\n\n" + temporalContext(now)
}

// temporalContext anchors relative date words in farm-local time so "hoje"
// and "ontem" resolve to concrete dates.
func temporalContext(now time.Time) string {
	local := now.In(saoPaulo)
	yesterday := local.AddDate(0, 0, -1)
	return fmt.Sprintf(
		"[CONTEXTO TEMPORAL: Agora são %s de %s (UTC-3). 'Hoje' = %s. 'Ontem' = %s.]",
		local.Format("15:04"),
		local.Format("02/01/2006"),
		local.Format("02/01/2006"),
		yesterday.Format("02/01/2006"),
	)
}

// UserPrompt joins recent conversation context with the new message so
// follow-up turns ("foram 20kg") resolve against what came before.
func UserPrompt(history []string, message string) string {
	if len(history) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString("Contexto da conversa:\n")
	for _, h := range history {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString("\nNova mensagem: ")
	b.WriteString(message)
	return b.String()
}
