package agent

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"manejobot/internal/compliance"
	"manejobot/internal/models"
)

type stubExtractor struct {
	results []*models.ExtractionResult
	err     error
	calls   int
}

func (s *stubExtractor) Extract(_ context.Context, _ []string, _ string) (*models.ExtractionResult, models.Usage, error) {
	usage := models.Usage{PromptTokens: 100, CompletionTokens: 20}
	if s.err != nil {
		return nil, usage, s.err
	}
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], usage, nil
}

type stubSpecialist struct{ answer string }

func (s *stubSpecialist) Answer(_ context.Context, _ []string, _ string) (string, models.Usage, error) {
	return s.answer, models.Usage{PromptTokens: 50, CompletionTokens: 30}, nil
}

type stubStore struct {
	saved  []*models.Record
	nextID int64
}

func (s *stubStore) SaveRecord(_ context.Context, rec *models.Record) (int64, error) {
	s.saved = append(s.saved, rec)
	s.nextID++
	return s.nextID, nil
}

type stubAdvisor struct{ warnings []string }

func (s *stubAdvisor) Advise(_ context.Context, _ *models.Record) []string {
	return s.warnings
}

func newTestController(ext *stubExtractor, store *stubStore) *Controller {
	return NewController(ext, &stubSpecialist{answer: "resposta técnica"}, store, &stubAdvisor{}, compliance.NewEngine(compliance.NewRuleSet()))
}

func TestMergeSlotsNeverOverwritesWithEmpty(t *testing.T) {
	slots := map[string]string{
		models.SlotProduct:     "tomate",
		models.SlotQuantityVal: "20",
	}
	MergeSlots(slots, map[string]string{
		models.SlotProduct:      "",
		models.SlotQuantityVal:  "None",
		models.SlotQuantityUnit: "kg",
	})
	if slots[models.SlotProduct] != "tomate" {
		t.Errorf("produto overwritten: %q", slots[models.SlotProduct])
	}
	if slots[models.SlotQuantityVal] != "20" {
		t.Errorf("quantidade overwritten: %q", slots[models.SlotQuantityVal])
	}
	if slots[models.SlotQuantityUnit] != "kg" {
		t.Errorf("new slot not merged: %q", slots[models.SlotQuantityUnit])
	}
}

func TestMergeSlotsRejectsHectareLocation(t *testing.T) {
	slots := map[string]string{}
	MergeSlots(slots, map[string]string{models.SlotLocation: "2 hectares"})
	if slots[models.SlotLocation] != "" {
		t.Errorf("area accepted as location: %q", slots[models.SlotLocation])
	}
}

func TestPreserveIntentAcrossGreeting(t *testing.T) {
	if got := PreserveIntent("colheita", models.IntentGreeting); got != "colheita" {
		t.Errorf("greeting displaced strong intent: %q", got)
	}
	if got := PreserveIntent("colheita", ""); got != "colheita" {
		t.Errorf("empty displaced strong intent: %q", got)
	}
	if got := PreserveIntent(models.IntentGreeting, models.IntentExecution); got != models.IntentExecution {
		t.Errorf("strong intent not adopted: %q", got)
	}
}

func TestRequiredSlotsByActivity(t *testing.T) {
	venda := RequiredSlots(models.ActivityVenda)
	for _, s := range venda {
		if s == models.SlotLocation {
			t.Error("Venda must not require location")
		}
	}

	colheita := RequiredSlots(models.ActivityColheita)
	found := false
	for _, s := range colheita {
		if s == models.SlotLocation {
			found = true
		}
	}
	if !found {
		t.Error("Colheita must require location")
	}

	unknown := RequiredSlots("")
	if unknown[len(unknown)-1] != models.SlotLocation {
		t.Error("unclassified activity must still require location")
	}
}

func TestHandleTurnSingleMessageExecution(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{
		Intent:       models.IntentExecution,
		ActivityType: "Plantio",
		Product:      "alface",
		QuantityVal:  "50",
		QuantityUnit: "mudas",
		Location:     "Talhão 1, canteiro 2",
	}}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "Plantei 50 mudas de alface no Talhão 1, canteiro 2")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q, message = %q", out.Status, out.Message)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d records", len(store.saved))
	}

	rec := store.saved[0]
	if rec.ActivityType != models.ActivityPlantio {
		t.Errorf("tipo = %q", rec.ActivityType)
	}
	item := rec.PrimaryItem()
	if item.Product != "ALFACE" || item.Quantity != 50 || item.Unit != "muda" {
		t.Errorf("item = %+v", item)
	}
	if item.Location.Plot != "Talhão 1" || item.Location.Bed != "2" {
		t.Errorf("location = %+v", item.Location)
	}
	if out.RecordID != 1 {
		t.Errorf("record id = %d", out.RecordID)
	}
	if len(conv.Slots) != 0 {
		t.Errorf("slots not cleared after save: %v", conv.Slots)
	}
}

func TestHandleTurnInquiryThenCompletion(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{
		{
			Intent:       models.IntentExecution,
			ActivityType: "Colheita",
			Product:      "tomate",
			Location:     "Talhão 2",
		},
		{
			QuantityVal:  "20",
			QuantityUnit: "kg",
		},
	}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "colhi tomate no talhão 2")
	if out.Status != models.OutcomeInquiry {
		t.Fatalf("first turn status = %q", out.Status)
	}
	if !strings.Contains(out.Message, "quantidade") {
		t.Errorf("question = %q", out.Message)
	}

	out = ctl.HandleTurn(context.Background(), conv, "foram 20kg")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("second turn status = %q, message = %q", out.Status, out.Message)
	}
	rec := store.saved[0]
	if rec.PrimaryItem().Quantity != 20 {
		t.Errorf("quantity = %v", rec.PrimaryItem().Quantity)
	}
	// First turn's location survived the second turn's empty extraction.
	if rec.PrimaryItem().Location.Plot == "" {
		t.Error("location lost across turns")
	}
}

func TestHandleTurnGreetingKeepsPendingHarvest(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{
		{Intent: "colheita", ActivityType: "Colheita", Product: "tomate"},
		{Intent: models.IntentGreeting},
	}}
	ctl := newTestController(ext, &stubStore{})
	conv := models.NewConversation("t1", "fulano", 7)

	ctl.HandleTurn(context.Background(), conv, "colhi tomate")
	ctl.HandleTurn(context.Background(), conv, "bom dia!")

	if conv.Intent != "colheita" {
		t.Errorf("intent = %q, want colheita", conv.Intent)
	}
	if conv.Slots[models.SlotProduct] != "tomate" {
		t.Errorf("slots = %v", conv.Slots)
	}
}

func TestHandleTurnBlocksProhibitedSubstance(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{Intent: models.IntentExecution}}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "apliquei glifosato no talhão 2")
	if out.Status != models.OutcomeBlocked {
		t.Fatalf("status = %q", out.Status)
	}
	if ext.calls != 0 {
		t.Error("extraction ran for a pre-blocked message")
	}
	if len(store.saved) != 0 {
		t.Error("blocked message produced a record")
	}
	if out.Data["base_legal"] == "" {
		t.Error("missing legal base in block data")
	}
}

func TestHandleTurnQuestionRoutesToSpecialist(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{Intent: models.IntentQuestion}}}
	ctl := newTestController(ext, &stubStore{})
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "como controlar pulgão sem agrotóxico?")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q", out.Status)
	}
	if out.Message != "resposta técnica" {
		t.Errorf("message = %q", out.Message)
	}
}

func TestHandleTurnVendaSkipsLocation(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{
		Intent:       models.IntentExecution,
		ActivityType: "Venda",
		Product:      "tomate",
		QuantityVal:  "30",
		QuantityUnit: "kg",
		Destination:  "feira municipal",
	}}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "vendi 30kg de tomate na feira")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q, message = %q", out.Status, out.Message)
	}
	if store.saved[0].Destination != "feira municipal" {
		t.Errorf("destino = %q", store.saved[0].Destination)
	}
}

func TestHandleTurnHarvestGetsLot(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{
		Intent:       models.IntentExecution,
		ActivityType: "Colheita",
		Product:      "tomate",
		QuantityVal:  "20",
		QuantityUnit: "kg",
		Location:     "Talhão 2",
	}}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "colhi 20kg de tomate no talhão 2")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q", out.Status)
	}
	if !strings.HasPrefix(store.saved[0].Lot, "LOTE-") {
		t.Errorf("lot = %q", store.saved[0].Lot)
	}
}

func TestHandleTurnComplianceWarningSavesWithAlert(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{
		Intent:       models.IntentExecution,
		ActivityType: "Insumo",
		Product:      "calda bordalesa",
		QuantityVal:  "10",
		QuantityUnit: "L",
	}}}
	store := &stubStore{}
	ctl := newTestController(ext, store)
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "apliquei 10L de calda bordalesa")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q, message = %q", out.Status, out.Message)
	}
	if !strings.Contains(out.Message, "Alerta de Compliance") {
		t.Errorf("message = %q", out.Message)
	}
	if !strings.Contains(store.saved[0].Observation, "[ALERTA COMPLIANCE]") {
		t.Errorf("observacao = %q", store.saved[0].Observation)
	}
}

func TestHandleTurnPlanAdvisoryAppended(t *testing.T) {
	ext := &stubExtractor{results: []*models.ExtractionResult{{
		Intent:       models.IntentExecution,
		ActivityType: "Insumo",
		Product:      "composto",
		QuantityVal:  "100",
		QuantityUnit: "kg",
	}}}
	store := &stubStore{}
	ctl := NewController(ext, &stubSpecialist{}, store,
		&stubAdvisor{warnings: []string{"⚠️ Insumo 'COMPOSTO' não autorizado no Plano de Manejo."}},
		compliance.NewEngine(compliance.NewRuleSet()))
	conv := models.NewConversation("t1", "fulano", 7)

	out := ctl.HandleTurn(context.Background(), conv, "recebi 100kg de composto")
	if out.Status != models.OutcomeSuccess {
		t.Fatalf("status = %q, message = %q", out.Status, out.Message)
	}
	if !strings.Contains(store.saved[0].Observation, "não autorizado no Plano") {
		t.Errorf("observacao = %q", store.saved[0].Observation)
	}
	if !strings.Contains(out.Message, "Alerta de Compliance") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestAuditTrailTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ã", 250)
	conv := models.NewConversation("t1", "u1", 1)
	conv.AppendHistory("user", "colhi tomate")
	conv.AppendHistory("ai", long)

	trail := auditTrail(conv)
	if !utf8.ValidString(trail) {
		t.Fatal("trail contains invalid UTF-8")
	}
	if !strings.Contains(trail, strings.Repeat("ã", 200)+"...") {
		t.Error("ai turn not truncated at 200 runes")
	}
	if !strings.Contains(trail, "[User]: colhi tomate") {
		t.Error("user turn missing from trail")
	}
}

func TestStateTransitions(t *testing.T) {
	if _, err := Transition(PhaseRoute, PhaseExecute); err == nil {
		t.Error("route must not jump straight to execute")
	}
	if _, err := Transition(PhaseCompliance, PhaseExecute); err != nil {
		t.Errorf("compliance -> execute rejected: %v", err)
	}
	if !IsTerminal(PhaseEnd) {
		t.Error("end must be terminal")
	}
}
