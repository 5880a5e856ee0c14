package models

import (
	"encoding/json"
	"fmt"
)

// Backend describes one extraction backend (an OpenAI-compatible chat
// completions endpoint). Backends are ranked by Priority; lower is tried
// first.
type Backend struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// BackendsConfig is the backends.json file structure.
type BackendsConfig struct {
	Backends []Backend `json:"backends"`
}

// FlexString is a string that also accepts JSON numbers. Backends are told
// to emit quantities as strings but routinely send bare numbers instead
// ("quantidade_valor": 50), and a type error here would burn a whole retry
// cycle for an otherwise valid extraction.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("valor deve ser texto ou número: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// ExtractionResult is the structured output of one interpreter call.
// Empty strings mean "not mentioned in this message"; the slot merge never
// lets them clobber previously accumulated values.
type ExtractionResult struct {
	Intent       string     `json:"intencao"`
	ActivityType string     `json:"tipo_atividade,omitempty"`
	Date         string     `json:"data,omitempty"`
	Product      string     `json:"produto,omitempty"`
	QuantityVal  FlexString `json:"quantidade_valor,omitempty"`
	QuantityUnit string     `json:"quantidade_unidade,omitempty"`
	Location     string     `json:"talhao_canteiro,omitempty"`
	Destination  string     `json:"destino,omitempty"`
	Origin       string     `json:"origem,omitempty"`
	Operation    string     `json:"tipo_operacao,omitempty"`
	Observation  string     `json:"observacao,omitempty"`
	DoseValue    FlexString `json:"dose_valor,omitempty"`
	DoseUnit     string     `json:"dose_unidade,omitempty"`
	Crop         string     `json:"cultura,omitempty"`
	Phase        string     `json:"fase,omitempty"`
}

// Fields returns the extracted values keyed by slot name, excluding the
// intent (which is merged via the intent-preservation rule, not the slot
// merge).
func (e *ExtractionResult) Fields() map[string]string {
	return map[string]string{
		SlotActivityType: e.ActivityType,
		SlotDate:         e.Date,
		SlotProduct:      e.Product,
		SlotQuantityVal:  string(e.QuantityVal),
		SlotQuantityUnit: e.QuantityUnit,
		SlotLocation:     e.Location,
		SlotDestination:  e.Destination,
		SlotOrigin:       e.Origin,
		SlotOperation:    e.Operation,
		SlotObservation:  e.Observation,
		SlotDoseValue:    string(e.DoseValue),
		SlotDoseUnit:     e.DoseUnit,
		SlotCrop:         e.Crop,
		SlotPhase:        e.Phase,
	}
}
