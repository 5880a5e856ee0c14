package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"manejobot/internal/models"
)

type stubCompleter struct {
	name      string
	answers   []string
	errs      []error
	calls     int
	jsonModes []bool
}

func (s *stubCompleter) Name() string { return s.name }

func (s *stubCompleter) Complete(_ context.Context, _, _ string, jsonMode bool) (string, models.Usage, error) {
	s.jsonModes = append(s.jsonModes, jsonMode)
	i := s.calls
	s.calls++
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.answers[i], models.Usage{PromptTokens: 10, CompletionTokens: 5}, err
}

type stubObserver struct {
	demoted []string
	retries int
}

func (o *stubObserver) BackendDemoted(backend string) { o.demoted = append(o.demoted, backend) }
func (o *stubObserver) ExtractionRetried()            { o.retries++ }

const validExtraction = `{"intencao": "execucao", "tipo_atividade": "Colheita", "produto": "tomate", "quantidade_valor": "20", "quantidade_unidade": "kg"}`

func TestExtractHappyPath(t *testing.T) {
	primary := &stubCompleter{name: "primary", answers: []string{validExtraction}}
	sel := NewSelectorWith([]Completer{primary}, NewBreaker(0))

	result, usage, err := sel.Extract(context.Background(), nil, "colhi 20kg de tomate")
	if err != nil {
		t.Fatal(err)
	}
	if result.Intent != "execucao" || result.Product != "tomate" {
		t.Errorf("result = %+v", result)
	}
	if usage.PromptTokens != 10 || usage.CompletionTokens != 5 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestParseExtractionNumericQuantities(t *testing.T) {
	// Backends ignore the "emit strings" instruction often enough that bare
	// numbers must parse on the first attempt.
	content := `{"intencao": "execucao", "tipo_atividade": "Colheita", "produto": "tomate", "quantidade_valor": 50, "quantidade_unidade": "kg", "dose_valor": 2.5, "dose_unidade": "L/ha"}`
	result, err := ParseExtraction(content)
	if err != nil {
		t.Fatal(err)
	}
	if result.QuantityVal != "50" {
		t.Errorf("quantidade_valor = %q, want \"50\"", result.QuantityVal)
	}
	if result.DoseValue != "2.5" {
		t.Errorf("dose_valor = %q, want \"2.5\"", result.DoseValue)
	}
	if result.Fields()[models.SlotQuantityVal] != "50" {
		t.Errorf("slot map quantidade_valor = %q", result.Fields()[models.SlotQuantityVal])
	}
}

func TestExtractUsesJSONModeAskDoesNot(t *testing.T) {
	stub := &stubCompleter{name: "p", answers: []string{validExtraction}}
	sel := NewSelectorWith([]Completer{stub}, NewBreaker(0))

	if _, _, err := sel.Extract(context.Background(), nil, "colhi 20kg de tomate"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := sel.Ask(context.Background(), "agrônomo", "como controlar pulgão?"); err != nil {
		t.Fatal(err)
	}

	if len(stub.jsonModes) != 2 || !stub.jsonModes[0] || stub.jsonModes[1] {
		t.Errorf("jsonModes = %v, want [true false]", stub.jsonModes)
	}
}

func TestExtractStripsFences(t *testing.T) {
	fenced := "```json\n" + validExtraction + "\n```"
	sel := NewSelectorWith([]Completer{&stubCompleter{name: "p", answers: []string{fenced}}}, NewBreaker(0))

	result, _, err := sel.Extract(context.Background(), nil, "colhi 20kg de tomate")
	if err != nil {
		t.Fatal(err)
	}
	if result.ActivityType != "Colheita" {
		t.Errorf("result = %+v", result)
	}
}

func TestExtractFailsOverOnRateLimit(t *testing.T) {
	limited := &stubCompleter{
		name:    "primary",
		answers: []string{""},
		errs:    []error{&BackendError{Backend: "primary", StatusCode: 429, RateLimited: true}},
	}
	fallback := &stubCompleter{name: "fallback", answers: []string{validExtraction}}
	breaker := NewBreaker(0)
	sel := NewSelectorWith([]Completer{limited, fallback}, breaker)

	result, _, err := sel.Extract(context.Background(), nil, "colhi 20kg de tomate")
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Product != "tomate" {
		t.Errorf("result = %+v", result)
	}
	if breaker.Available("primary") {
		t.Error("rate-limited backend was not demoted")
	}
	if limited.calls != 1 {
		t.Errorf("demoted backend called %d times in one turn", limited.calls)
	}
}

func TestObserverSeesDemotionsAndRetries(t *testing.T) {
	limited := &stubCompleter{
		name:    "primary",
		answers: []string{""},
		errs:    []error{&BackendError{Backend: "primary", StatusCode: 429, RateLimited: true}},
	}
	flaky := &stubCompleter{name: "fallback", answers: []string{"não entendi", validExtraction}}
	sel := NewSelectorWith([]Completer{limited, flaky}, NewBreaker(0))
	obs := &stubObserver{}
	sel.SetObserver(obs)

	if _, _, err := sel.Extract(context.Background(), nil, "colhi 20kg de tomate"); err != nil {
		t.Fatal(err)
	}
	if len(obs.demoted) != 1 || obs.demoted[0] != "primary" {
		t.Errorf("demoted = %v, want [primary]", obs.demoted)
	}
	if obs.retries != 1 {
		t.Errorf("retries = %d, want 1", obs.retries)
	}
}

func TestExtractRetriesMalformed(t *testing.T) {
	flaky := &stubCompleter{
		name:    "p",
		answers: []string{"não sei responder isso", validExtraction},
	}
	sel := NewSelectorWith([]Completer{flaky}, NewBreaker(0))

	result, usage, err := sel.Extract(context.Background(), nil, "plantei alface")
	if err != nil {
		t.Fatal(err)
	}
	if result.Intent != "execucao" {
		t.Errorf("result = %+v", result)
	}
	// Both attempts bill tokens.
	if usage.PromptTokens != 20 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestExtractGivesUpAfterThreeMalformed(t *testing.T) {
	bad := &stubCompleter{name: "p", answers: []string{"???"}}
	sel := NewSelectorWith([]Completer{bad}, NewBreaker(0))

	_, _, err := sel.Extract(context.Background(), nil, "plantei alface")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
	if bad.calls != maxAttempts {
		t.Errorf("calls = %d, want %d", bad.calls, maxAttempts)
	}
}

func TestExtractNoProviderAvailable(t *testing.T) {
	breaker := NewBreaker(time.Hour)
	breaker.Demote("only")
	sel := NewSelectorWith([]Completer{&stubCompleter{name: "only", answers: []string{validExtraction}}}, breaker)

	_, _, err := sel.Extract(context.Background(), nil, "colhi tomate")
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Errorf("err = %v, want ErrNoProviderAvailable", err)
	}
}

func TestBreakerExpiry(t *testing.T) {
	b := NewBreaker(time.Hour)
	base := time.Now()
	b.now = func() time.Time { return base }

	b.Demote("x")
	if b.Available("x") {
		t.Fatal("demoted backend reported available")
	}

	b.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	if !b.Available("x") {
		t.Fatal("expired demotion still blocking")
	}

	b.Reset("x")
	if !b.Available("x") {
		t.Fatal("reset backend unavailable")
	}
}

func TestClassifyHTTP(t *testing.T) {
	if !classifyHTTP("g", 429, "").RateLimited {
		t.Error("429 must rate-limit")
	}
	if !classifyHTTP("g", 400, `{"error": "rate_limit_exceeded"}`).RateLimited {
		t.Error("rate_limit body must rate-limit")
	}
	if classifyHTTP("g", 500, "internal").RateLimited {
		t.Error("plain 500 must not rate-limit")
	}
}

func TestSystemPromptEscalation(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	p0 := SystemPrompt(0, now)
	p1 := SystemPrompt(1, now)
	p2 := SystemPrompt(2, now)
	if p0 == p1 || p1 == p2 {
		t.Error("prompts must escalate per attempt")
	}
	for i, p := range []string{p0, p1, p2} {
		if !strings.Contains(p, "[CONTEXTO TEMPORAL") {
			t.Errorf("prompt %d missing temporal context", i)
		}
	}
}
