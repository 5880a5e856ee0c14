package parsing

import (
	"testing"
	"time"

	"manejobot/internal/models"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in    string
		value float64
		unit  string
	}{
		{"10,5kg", 10.5, "kg"},
		{"100 litros", 100, "L"},
		{"1.500,50", 1500.50, "unid"},
		{"1.500", 1500, "unid"},
		{"1.5", 1.5, "unid"},
		{"R$ 250,00", 250, "unid"},
		{"2 g/m²", 2, "g/m²"},
		{"50 mudas", 50, "muda"},
		{"3 caixas", 3, "cx"},
		{"2 toneladas", 2, "ton"},
		{"", 0, "unid"},
		{"meia caixa", 0, "unid"},
	}
	for _, tc := range tests {
		got := ParseQuantity(tc.in)
		if got.Value != tc.value {
			t.Errorf("ParseQuantity(%q).Value = %v, want %v", tc.in, got.Value, tc.value)
		}
		if got.Unit != tc.unit && tc.in != "meia caixa" {
			t.Errorf("ParseQuantity(%q).Unit = %q, want %q", tc.in, got.Unit, tc.unit)
		}
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := map[string]string{
		"quilos":   "kg",
		"KG":       "kg",
		"litros":   "L",
		"t":        "ton",
		"sacos":    "sc",
		"pés":      "pé",
		"hectares": "ha",
		"":         "unid",
		"fardo":    "fardo",
	}
	for in, want := range tests {
		if got := NormalizeUnit(in); got != want {
			t.Errorf("NormalizeUnit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDateBR(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-08-30", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
		{"30/08/2026", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
		{"30-08-2026", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
		{"01/02/26", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"01/02/99", time.Date(1999, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseDateBR(tc.in)
		if err != nil {
			t.Fatalf("ParseDateBR(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDateBR(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"ontem", "32/01/2026", "2026/08/30"} {
		if _, err := ParseDateBR(bad); err == nil {
			t.Errorf("ParseDateBR(%q): expected error", bad)
		}
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want models.Location
	}{
		{"talhão novo, canteiro 3", models.Location{Plot: "talhão novo", Bed: "3"}},
		{"Talhão 2, canteiro A", models.Location{Plot: "Talhão 2", Bed: "A"}},
		{"Horta - linha 3", models.Location{Plot: "Horta", Row: "3"}},
		{"Talhão 1 canteiro 2", models.Location{Plot: "Talhão 1", Bed: "2"}},
		{"canteiro 3 do talhão novo", models.Location{Plot: "talhão novo", Bed: "3"}},
		{"talhão 7", models.Location{Plot: "Talhão 7"}},
		{"Estufa Norte", models.Location{Plot: "Estufa Norte"}},
		{"", models.Location{Plot: models.LocationNotInformed}},
	}
	for _, tc := range tests {
		got := ParseLocation(tc.in)
		if got != tc.want {
			t.Errorf("ParseLocation(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	in := "colhi\x00 20kg\x1f de tomate\n"
	want := "colhi 20kg de tomate\n"
	if got := SanitizeInput(in); got != want {
		t.Errorf("SanitizeInput = %q, want %q", got, want)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  ", 50, models.LocationNotInformed); got != models.LocationNotInformed {
		t.Errorf("empty input: got %q", got)
	}
	if got := SanitizeString("abcdef", 3, ""); got != "abc" {
		t.Errorf("truncation: got %q", got)
	}
}
