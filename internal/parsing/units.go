// Package parsing converts localized Brazilian numeric, date, unit and
// location text into canonical values. All functions are pure.
package parsing

import "strings"

// DefaultUnit is used whenever no unit can be determined.
const DefaultUnit = "unid"

// unitMap maps lower-cased unit synonyms to their canonical short form.
// Composite rate units (g/m², ml/cova) are first-class: micro-dosage
// reports are common for biological inputs.
var unitMap = map[string]string{
	// count
	"unidade": "unid", "unidades": "unid", "und": "unid", "un": "unid", "u": "unid",
	// weight
	"quilo": "kg", "quilos": "kg", "kilogramas": "kg", "kilo": "kg", "kilos": "kg",
	"quilograma": "kg", "quilogramas": "kg",
	"grama": "g", "gramas": "g", "gr": "g",
	"tonelada": "ton", "toneladas": "ton", "t": "ton", "ton": "ton",
	// volume
	"litro": "L", "litros": "L", "l": "L",
	"ml": "ml", "mililitros": "ml", "mililitro": "ml",
	"m3": "m³", "m³": "m³", "metro cúbico": "m³", "metros cúbicos": "m³",
	// packaging
	"caixa": "cx", "caixas": "cx",
	"maço": "maço", "macos": "maço", "maco": "maço", "maços": "maço",
	"saco": "sc", "sacos": "sc", "sc": "sc",
	"bag": "bag", "bags": "bag", "sacaria": "bag", "big bag": "bag",
	"bandeja": "bdj", "bandejas": "bdj",
	"cartela": "cart", "cartelas": "cart",
	// area
	"m2": "m²", "metros quadrados": "m²", "metro quadrado": "m²",
	"ha": "ha", "hectare": "ha", "hectares": "ha",
	// plants
	"muda": "muda", "mudas": "muda",
	"pé": "pé", "pés": "pé", "pe": "pé", "pes": "pé",
	"semente": "sem", "sementes": "sem",
	"cova": "cova", "covas": "cova",
	// composite rates (micro-dosage)
	"g/m2": "g/m²", "g/m²": "g/m²", "gramas por metro quadrado": "g/m²", "g por m2": "g/m²",
	"ml/m2": "ml/m²", "ml/m²": "ml/m²", "ml por metro quadrado": "ml/m²",
	"l/m2": "L/m²", "l/m²": "L/m²", "litros por metro quadrado": "L/m²",
	"litro por metro quadrado": "L/m²", "l por m2": "L/m²",
	"m3/m2": "m³/m²", "m³/m²": "m³/m²",
	"g/planta": "g/planta",
	"ml/cova":  "ml/cova",
	"ovos/m2": "unid/m²", "ovos/m²": "unid/m²",
}

// NormalizeUnit maps a unit synonym to its canonical short form. Unknown
// units pass through lower-cased; empty input yields DefaultUnit.
func NormalizeUnit(unit string) string {
	clean := strings.ToLower(strings.TrimSpace(unit))
	if clean == "" {
		return DefaultUnit
	}
	if canonical, ok := unitMap[clean]; ok {
		return canonical
	}
	return clean
}
