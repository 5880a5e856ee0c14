package compliance

import "strings"

// Level classifies how a substance rule applies to organic production.
type Level string

const (
	LevelProhibited Level = "proibido"
	LevelAttention  Level = "atencao"
	LevelAllowed    Level = "permitido"
)

// Rule describes a single substance entry: the substring it matches,
// the guidance message and the legal basis behind it.
type Rule struct {
	Term      string `yaml:"term"`
	Level     Level  `yaml:"level"`
	Message   string `yaml:"message"`
	LegalBase string `yaml:"legal_base"`
}

// defaultRules is consulted in order; the first substring match wins, so
// more specific terms must come before shorter ones (e.g. "óleo de neem"
// before "neem").
var defaultRules = []Rule{
	// Prohibited synthetic pesticides and herbicides.
	{"glifosato", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"glyphosate", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"roundup", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"paraquat", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"gramoxone", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"2,4-d", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"fipronil", LevelProhibited, "Inseticida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"metomil", LevelProhibited, "Inseticida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"carbofuran", LevelProhibited, "Inseticida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"malathion", LevelProhibited, "Inseticida sintético proibido na produção orgânica.", "Lei 10.831"},
	{"ddt", LevelProhibited, "Organoclorado banido.", "Lei 10.831"},
	{"atrazina", LevelProhibited, "Herbicida sintético proibido na produção orgânica.", "Lei 10.831"},

	// Prohibited synthetic fertilizers.
	{"npk", LevelProhibited, "Adubo químico de alta solubilidade proibido.", "IN 64/2008"},
	{"n-p-k", LevelProhibited, "Adubo químico de alta solubilidade proibido.", "IN 64/2008"},
	{"ureia", LevelProhibited, "Fertilizante nitrogenado sintético proibido.", "IN 64/2008"},
	{"uréia", LevelProhibited, "Fertilizante nitrogenado sintético proibido.", "IN 64/2008"},
	{"sulfato de amonio", LevelProhibited, "Fertilizante nitrogenado sintético proibido.", "IN 64/2008"},
	{"sulfato de amônio", LevelProhibited, "Fertilizante nitrogenado sintético proibido.", "IN 64/2008"},
	{"cloreto de potassio", LevelProhibited, "Fertilizante de alta solubilidade proibido.", "IN 64/2008"},
	{"cloreto de potássio", LevelProhibited, "Fertilizante de alta solubilidade proibido.", "IN 64/2008"},
	{"adubo quimico", LevelProhibited, "Adubos químicos sintéticos são proibidos.", "IN 64/2008"},
	{"adubo químico", LevelProhibited, "Adubos químicos sintéticos são proibidos.", "IN 64/2008"},

	// Restricted use, requires documentation or dosage control.
	{"calda bordalesa", LevelAttention, "Uso permitido com restrição de cobre (máx. 6 kg/ha/ano).", "IN 64/2008"},
	{"calda sulfocalcica", LevelAttention, "Uso permitido com restrições. Registre a dosagem.", "IN 64/2008"},
	{"calda sulfocálcica", LevelAttention, "Uso permitido com restrições. Registre a dosagem.", "IN 64/2008"},
	{"enxofre", LevelAttention, "Uso permitido com restrições. Registre a dosagem.", "IN 64/2008"},
	{"cobre", LevelAttention, "Limite de 6 kg/ha/ano de cobre metálico.", "IN 64/2008"},
	{"oleo de neem", LevelAttention, "Permitido, observe o período de carência.", "IN 64/2008"},
	{"óleo de neem", LevelAttention, "Permitido, observe o período de carência.", "IN 64/2008"},
	{"oleo mineral", LevelAttention, "Permitido com restrições, registre a finalidade.", "IN 64/2008"},
	{"óleo mineral", LevelAttention, "Permitido com restrições, registre a finalidade.", "IN 64/2008"},
	{"neem", LevelAttention, "Permitido, observe o período de carência.", "IN 64/2008"},
	{"nim", LevelAttention, "Permitido, observe o período de carência.", "IN 64/2008"},
	{"pireto", LevelAttention, "Piretrina natural permitida com restrições.", "IN 64/2008"},
	{"rotenona", LevelAttention, "Uso restrito, verifique regulamentação vigente.", "IN 64/2008"},
	{"cama de aviario", LevelAttention, "Deve ser compostada antes do uso.", "IN 46/2011"},
	{"cama de aviário", LevelAttention, "Deve ser compostada antes do uso.", "IN 46/2011"},
	{"esterco", LevelAttention, "Deve ser compostado ou aplicado 60 dias antes da colheita.", "IN 46/2011"},
	{"calcario", LevelAttention, "Permitido, registre origem e quantidade.", "IN 17/2014"},
	{"calcário", LevelAttention, "Permitido, registre origem e quantidade.", "IN 17/2014"},

	// Explicitly allowed inputs.
	{"composto organico", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"composto orgânico", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"composto", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"bokashi", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"biofertilizante", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"extrato de alho", LevelAllowed, "Defensivo natural permitido.", "IN 64/2008"},
	{"po de rocha", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"pó de rocha", LevelAllowed, "Insumo permitido na produção orgânica.", "IN 64/2008"},
	{"adubacao verde", LevelAllowed, "Prática recomendada na produção orgânica.", "IN 64/2008"},
	{"adubação verde", LevelAllowed, "Prática recomendada na produção orgânica.", "IN 64/2008"},
	{"adubo verde", LevelAllowed, "Prática recomendada na produção orgânica.", "IN 64/2008"},
}

// RuleSet resolves substance mentions against an ordered rule table.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet returns the built-in table.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: defaultRules}
}

// NewRuleSetWith prepends overrides to the built-in table so custom entries
// win over the defaults.
func NewRuleSetWith(overrides []Rule) *RuleSet {
	rules := make([]Rule, 0, len(overrides)+len(defaultRules))
	rules = append(rules, overrides...)
	rules = append(rules, defaultRules...)
	return &RuleSet{rules: rules}
}

// Match returns the first rule whose term is contained in the text, or nil.
// Matching is case-insensitive substring search over the ordered table.
func (rs *RuleSet) Match(text string) *Rule {
	lower := strings.ToLower(text)
	for i := range rs.rules {
		if strings.Contains(lower, rs.rules[i].Term) {
			return &rs.rules[i]
		}
	}
	return nil
}
