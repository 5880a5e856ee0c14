package parsing

import (
	"fmt"
	"regexp"
	"time"
)

var dateBRRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)

// ParseDateBR parses dates the way field workers write them: ISO
// (2026-08-30), DD/MM/YYYY, DD-MM-YYYY and the short DD/MM/YY form.
// Two-digit years below 50 resolve to the 2000s.
func ParseDateBR(text string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return t, nil
	}

	m := dateBRRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, fmt.Errorf("data não reconhecida: %q", text)
	}

	day, month, year := atoiSafe(m[1]), atoiSafe(m[2]), atoiSafe(m[3])
	if len(m[3]) == 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("data inválida: %q", text)
	}
	return t, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
