package parsing

import (
	"fmt"
	"regexp"
	"strings"

	"manejobot/internal/models"
)

// The patterns are tried in order; the first match wins. Field reports mix
// "Talhão 2, canteiro 5", "Horta - linha 3", "canteiro 3 do talhão novo"
// and bare plot names.
var locationPatterns = []struct {
	re    *regexp.Regexp
	build func(m []string) models.Location
}{
	{
		regexp.MustCompile(`^(?i)(.+?),\s*canteiro\s*(\d+|[a-zA-Z]+)\s*$`),
		func(m []string) models.Location { return models.Location{Plot: m[1], Bed: m[2]} },
	},
	{
		regexp.MustCompile(`^(?i)(.+?)\s*[-–]\s*linha\s*(\d+)\s*$`),
		func(m []string) models.Location { return models.Location{Plot: m[1], Row: m[2]} },
	},
	{
		regexp.MustCompile(`^(?i)(.+?)\s+canteiro\s*(\d+|[a-zA-Z]+)\s*$`),
		func(m []string) models.Location { return models.Location{Plot: m[1], Bed: m[2]} },
	},
	{
		regexp.MustCompile(`^(?i)canteiro\s*(\d+|[a-zA-Z]+)\s+(?:do|da|no|na)\s+(.+)$`),
		func(m []string) models.Location { return models.Location{Plot: m[2], Bed: m[1]} },
	},
	{
		regexp.MustCompile(`^(?i)talhão\s*(\d+)\s*$`),
		func(m []string) models.Location { return models.Location{Plot: fmt.Sprintf("Talhão %s", m[1])} },
	},
}

// ParseLocation splits a free-form location string into plot, bed and row
// components. Unrecognized text becomes the plot name verbatim; empty input
// yields the placeholder plot.
func ParseLocation(text string) models.Location {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Location{Plot: models.LocationNotInformed}
	}

	for _, p := range locationPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			loc := p.build(m)
			loc.Plot = strings.TrimSpace(loc.Plot)
			return loc
		}
	}
	return models.Location{Plot: text}
}
