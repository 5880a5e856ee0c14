package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"manejobot/internal/models"
	"manejobot/internal/parsing"
)

// Normalize parses a stored activity document in any of the historical
// shapes and returns it in the current item-list form. Legacy flat records
// keep enough information to be flattened back without loss.
func Normalize(data []byte) (*models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("registro inválido: %w", err)
	}

	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registro inválido: %w", err)
	}

	switch DetectShape(data) {
	case ShapeItems:
		// Already current.

	case ShapeIntermediate:
		primary, ok := decodeProduct(raw.ProductPrimary)
		if !ok {
			// Nameless primary: the flat keys are all this document has.
			buildLegacyItems(&rec, &raw)
			break
		}
		// String-form primaries keep their quantity in the top-level
		// quantidade_valor/quantidade_unidade keys.
		if primary.Quantity == 0 {
			primary.Quantity = raw.QuantityVal
		}
		if primary.Unit == "" {
			primary.Unit = raw.QuantityUnit
		}
		items := make([]models.ActivityItem, 0, 1+len(raw.ProductsSecondary))
		items = append(items, models.ActivityItem{
			Product:  strings.ToUpper(primary.Name),
			Quantity: primary.Quantity,
			Unit:     parsing.NormalizeUnit(primary.Unit),
			Variety:  primary.Variety,
			Role:     models.RolePrincipal,
			Location: parsing.ParseLocation(raw.LocationRaw),
		})
		for _, rawSec := range raw.ProductsSecondary {
			sec, ok := decodeProduct(rawSec)
			if !ok {
				continue
			}
			items = append(items, models.ActivityItem{
				Product:  strings.ToUpper(sec.Name),
				Quantity: sec.Quantity,
				Unit:     parsing.NormalizeUnit(sec.Unit),
				Variety:  sec.Variety,
				Role:     models.RoleSecondary,
				Location: parsing.ParseLocation(raw.LocationRaw),
			})
		}
		rec.Items = items
		if len(items) > 1 {
			rec.System = models.SystemIntercrop
		} else {
			rec.System = models.SystemMonoculture
		}
		rec.LocationText = raw.LocationRaw

	case ShapeLegacy:
		buildLegacyItems(&rec, &raw)

	default:
		return nil, fmt.Errorf("formato de registro não reconhecido")
	}

	return &rec, nil
}

// buildLegacyItems fills a record from the flat keys. Product and unit are
// kept verbatim so the record flattens back to the exact legacy document.
func buildLegacyItems(rec *models.Record, raw *rawRecord) {
	rec.Items = []models.ActivityItem{{
		Product:  raw.Product,
		Quantity: raw.Quantity,
		Unit:     raw.Unit,
		Role:     models.RolePrincipal,
		Location: parsing.ParseLocation(raw.LocationRaw),
	}}
	rec.System = models.SystemMonoculture
	rec.LocationText = raw.LocationRaw
}

// Flatten converts a normalized record back to the flat legacy map consumed
// by the certification export. A record normalized from the legacy shape
// flattens back to the same values.
func Flatten(rec *models.Record) map[string]any {
	out := map[string]any{
		"produto":    "",
		"quantidade": 0.0,
		"unidade":    "",
		"local":      rec.LocationText,
	}
	if len(rec.Items) > 0 {
		item := rec.PrimaryItem()
		out["produto"] = item.Product
		out["quantidade"] = item.Quantity
		out["unidade"] = item.Unit
		if rec.LocationText == "" {
			out["local"] = formatLocation(item.Location)
		}
	}
	return out
}

func formatLocation(loc models.Location) string {
	switch {
	case loc.Plot == "" || loc.Plot == models.LocationNotInformed:
		return loc.Plot
	case loc.Bed != "":
		return fmt.Sprintf("%s, canteiro %s", loc.Plot, loc.Bed)
	case loc.Row != "":
		return fmt.Sprintf("%s - linha %s", loc.Plot, loc.Row)
	default:
		return loc.Plot
	}
}

// RequiresLocation reports whether an activity type needs a plot to be
// auditable. Commercial movements (sale, purchase, input receipt) happen
// off-field.
func RequiresLocation(activityType string) bool {
	switch activityType {
	case models.ActivityVenda, models.ActivityCompra, models.ActivityInsumo:
		return false
	}
	return true
}

// ValidateItems checks each item of a record and returns one message per
// problem, indexed the way reviewers see them.
func ValidateItems(rec *models.Record) []string {
	var errs []string
	if len(rec.Items) == 0 {
		return []string{"Registro sem itens."}
	}
	for i, item := range rec.Items {
		n := i + 1
		if strings.TrimSpace(item.Product) == "" {
			errs = append(errs, fmt.Sprintf("Atividade %d: Produto é obrigatório", n))
		}
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("Atividade %d: Quantidade deve ser maior que zero", n))
		}
		if strings.TrimSpace(item.Unit) == "" {
			errs = append(errs, fmt.Sprintf("Atividade %d: Unidade é obrigatória", n))
		}
		if RequiresLocation(rec.ActivityType) && strings.TrimSpace(item.Location.Plot) == "" {
			errs = append(errs, fmt.Sprintf("Atividade %d: Talhão é obrigatório no local", n))
		}
	}
	return errs
}
