package agent

import (
	"strings"

	"manejobot/internal/models"
)

// verbMap resolves the verbs farmers actually use to canonical activity
// types, for when the extractor returns the action instead of the type.
var verbMap = map[string]string{
	"plantar":    models.ActivityPlantio,
	"plantei":    models.ActivityPlantio,
	"plantio":    models.ActivityPlantio,
	"semeio":     models.ActivityPlantio,
	"semeadura":  models.ActivityPlantio,
	"semear":     models.ActivityPlantio,
	"colher":     models.ActivityColheita,
	"colhi":      models.ActivityColheita,
	"colheita":   models.ActivityColheita,
	"aplicar":    models.ActivityManejo,
	"apliquei":   models.ActivityManejo,
	"adubar":     models.ActivityManejo,
	"adubei":     models.ActivityManejo,
	"pulverizar": models.ActivityManejo,
	"pulverizei": models.ActivityManejo,
	"limpar":     models.ActivityManejo,
	"limpei":     models.ActivityManejo,
	"roçar":      models.ActivityManejo,
	"rocei":      models.ActivityManejo,
	"capinar":    models.ActivityManejo,
	"capinei":    models.ActivityManejo,
	"manejo":     models.ActivityManejo,
	"comprar":    models.ActivityInsumo,
	"comprei":    models.ActivityInsumo,
	"receber":    models.ActivityInsumo,
	"recebi":     models.ActivityInsumo,
	"insumo":     models.ActivityInsumo,
	"vender":     models.ActivityVenda,
	"vendi":      models.ActivityVenda,
	"venda":      models.ActivityVenda,
	"compra":     models.ActivityCompra,
}

// MapActivityType normalizes an extracted activity type or verb to one of
// the canonical types. Unknown non-empty values fall back to Outro; empty
// stays empty so the routing still asks for the location.
func MapActivityType(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	switch trimmed {
	case models.ActivityPlantio, models.ActivityManejo, models.ActivityColheita,
		models.ActivityInsumo, models.ActivityVenda, models.ActivityCompra, models.ActivityOutro:
		return trimmed
	}
	if mapped, ok := verbMap[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	return models.ActivityOutro
}
