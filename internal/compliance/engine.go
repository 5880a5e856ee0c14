package compliance

import (
	"fmt"
	"strings"
	"sync"

	"manejobot/internal/models"
)

// Result carries the outcome of a compliance evaluation.
type Result struct {
	Valid     bool
	Message   string
	Level     string // "erro", "alerta" or "info"
	LegalBase string
}

// Ceiling bounds plausible quantities per activity type. Quantities above
// Max in one of the listed units raise a warning; quantities above ten
// times Max block the record outright regardless of unit.
type Ceiling struct {
	Max   float64
	Units []string
}

var defaultCeilings = map[string]Ceiling{
	models.ActivityInsumo:   {Max: 5000, Units: []string{"l", "kg", "litros", "quilos", "litro", "quilo"}},
	models.ActivityColheita: {Max: 50000, Units: []string{"kg", "quilos", "ton", "toneladas", "t", "caixas", "sacas"}},
	models.ActivityManejo:   {Max: 10000, Units: []string{"l", "kg", "litros", "quilos", "unidade", "unidades"}},
	models.ActivityPlantio:  {Max: 100000, Units: []string{"mudas", "sementes", "kg", "unidade", "unidades"}},
}

var fallbackCeiling = Ceiling{Max: 10000}

const harvestYieldCeiling = 100000

// Engine evaluates substance rules and quantity plausibility. The rule
// table may be swapped at runtime by the hot-reload watcher while turns
// are in flight.
type Engine struct {
	mu       sync.RWMutex
	rules    *RuleSet
	ceilings map[string]Ceiling
}

func NewEngine(rules *RuleSet) *Engine {
	return &Engine{rules: rules, ceilings: defaultCeilings}
}

// SetRules swaps the substance table.
func (e *Engine) SetRules(rules *RuleSet) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
}

func (e *Engine) ruleSet() *RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// PreCheck scans raw message text for substance mentions before any
// extraction work is spent on it. A prohibited hit blocks the turn.
func (e *Engine) PreCheck(text string) Result {
	rule := e.ruleSet().Match(text)
	if rule == nil {
		return Result{Valid: true, Level: "info"}
	}

	switch rule.Level {
	case LevelProhibited:
		return Result{
			Valid:     false,
			Message:   fmt.Sprintf("⛔ PROIBIDO: %s", rule.Message),
			Level:     "erro",
			LegalBase: rule.LegalBase,
		}
	case LevelAttention:
		return Result{
			Valid:     true,
			Message:   fmt.Sprintf("⚠️ ATENÇÃO: %s", rule.Message),
			Level:     "alerta",
			LegalBase: rule.LegalBase,
		}
	default:
		return Result{
			Valid:     true,
			Message:   fmt.Sprintf("✅ %s", rule.Message),
			Level:     "info",
			LegalBase: rule.LegalBase,
		}
	}
}

// ValidateRecord runs the post-extraction checks over a structured record:
// prohibited products, quantity ceilings, copper and manure restrictions and
// harvest plausibility. The first hard block short-circuits; soft warnings
// accumulate.
func (e *Engine) ValidateRecord(rec *models.Record) Result {
	var warnings []string

	for i := range rec.Items {
		item := &rec.Items[i]

		if rule := e.ruleSet().Match(item.Product); rule != nil && rule.Level == LevelProhibited {
			return Result{
				Valid: false,
				Message: fmt.Sprintf(
					"⛔ REGISTRO RECUSADO: O produto '%s' contém substâncias proibidas (%s). O registro não será salvo.",
					item.Product, rule.LegalBase),
				Level:     "erro",
				LegalBase: rule.LegalBase,
			}
		}

		ceiling, ok := e.ceilings[rec.ActivityType]
		if !ok {
			ceiling = fallbackCeiling
		}
		if item.Quantity > ceiling.Max*10 {
			return Result{
				Valid: false,
				Message: fmt.Sprintf(
					"⛔ QUANTIDADE IMPOSSÍVEL: %.0f %s para %s. Verifique se a unidade está correta e envie novamente.",
					item.Quantity, item.Unit, rec.ActivityType),
				Level: "erro",
			}
		}
		if item.Quantity > ceiling.Max && unitInList(item.Unit, ceiling.Units) {
			warnings = append(warnings, fmt.Sprintf(
				"⚠️ Quantidade alta: %.0f %s. Verifique se está correto.", item.Quantity, item.Unit))
		}

		upper := strings.ToUpper(item.Product)
		if rec.ActivityType == models.ActivityInsumo {
			if strings.Contains(upper, "COBRE") || strings.Contains(upper, "BORDALESA") {
				warnings = append(warnings, "⚠️ Limite de Cobre: Máximo de 6 kg/ha/ano.")
			}
			if strings.Contains(upper, "ESTERCO") || strings.Contains(upper, "CAMA DE") || strings.Contains(upper, "AVIÁRIO") {
				warnings = append(warnings, "⚠️ Esterco: Deve ser compostado ou aplicado 60 dias antes da colheita.")
			}
		}

		if rec.ActivityType == models.ActivityColheita && item.Quantity > harvestYieldCeiling {
			warnings = append(warnings, "⚠️ Produtividade implausível. Verifique a área e quantidade informadas.")
		}
	}

	if len(warnings) > 0 {
		return Result{Valid: true, Message: strings.Join(warnings, "\n"), Level: "alerta"}
	}
	return Result{Valid: true, Level: "info"}
}

func unitInList(unit string, units []string) bool {
	lower := strings.ToLower(unit)
	for _, u := range units {
		if lower == u {
			return true
		}
	}
	return false
}
