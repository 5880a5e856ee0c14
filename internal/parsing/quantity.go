package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

// Quantity is the structured result of parsing a quantity string.
type Quantity struct {
	Value float64
	Unit  string
	Raw   string
}

var (
	currencyPrefixRe = regexp.MustCompile(`^R\$\s*`)
	numberRe         = regexp.MustCompile(`[\d.,]+`)
	thousandsOnlyRe  = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	unitTokenRe      = regexp.MustCompile(`[a-zA-ZçãõáéíóúâêôÇÃÕÁÉÍÓÚÂÊÔ][a-zA-Z0-9çãõáéíóúâêôÇÃÕÁÉÍÓÚÂÊÔ²/%]*`)
	controlCharRe    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// ParseQuantity parses a Brazilian-format quantity string into value and
// canonical unit.
//
//	"10,5kg"     → {10.5, "kg"}
//	"100 litros" → {100, "L"}
//	"1.500,00"   → {1500, "unid"}
//	"2 g/m²"     → {2, "g/m²"}
func ParseQuantity(text string) Quantity {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Quantity{Unit: DefaultUnit}
	}

	cleaned := currencyPrefixRe.ReplaceAllString(raw, "")

	value := 0.0
	if numStr := numberRe.FindString(cleaned); numStr != "" {
		value = parseNumberBR(numStr)
	}

	unit := DefaultUnit
	if unitStr := unitTokenRe.FindString(cleaned); unitStr != "" {
		unit = NormalizeUnit(unitStr)
	}

	return Quantity{Value: value, Unit: unit, Raw: raw}
}

// parseNumberBR resolves the Brazilian decimal convention: period as
// thousands separator, comma as decimal separator, tolerating plain
// period-decimal input as well.
func parseNumberBR(numStr string) float64 {
	switch {
	case strings.Contains(numStr, ",") && strings.Contains(numStr, "."):
		// 1.500,50 → 1500.50
		numStr = strings.ReplaceAll(numStr, ".", "")
		numStr = strings.ReplaceAll(numStr, ",", ".")
	case strings.Contains(numStr, ","):
		numStr = strings.ReplaceAll(numStr, ",", ".")
	case strings.Contains(numStr, "."):
		// 1.500 is a thousands group, 1.5 a decimal
		if thousandsOnlyRe.MatchString(numStr) {
			numStr = strings.ReplaceAll(numStr, ".", "")
		}
	}

	value, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0
	}
	return value
}

// ParseFloatBR parses any textual value to a float, handling the Brazilian
// format. Returns 0 when the value carries no number.
func ParseFloatBR(value string) float64 {
	return ParseQuantity(value).Value
}

// SanitizeInput strips non-printable control characters from inbound text,
// keeping newlines and tabs. Runs before the compliance pre-check.
func SanitizeInput(text string) string {
	return controlCharRe.ReplaceAllString(text, "")
}

// SanitizeString trims a value to a safe, bounded string, substituting def
// when empty.
func SanitizeString(value string, maxLength int, def string) string {
	result := strings.TrimSpace(value)
	if result == "" {
		return def
	}
	if maxLength > 0 && len(result) > maxLength {
		return result[:maxLength]
	}
	return result
}
