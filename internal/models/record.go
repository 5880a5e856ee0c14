package models

import "time"

// Activity types used throughout the field notebook.
const (
	ActivityPlantio  = "Plantio"
	ActivityManejo   = "Manejo"
	ActivityColheita = "Colheita"
	ActivityInsumo   = "Insumo"
	ActivityVenda    = "Venda"
	ActivityCompra   = "Compra"
	ActivityOutro    = "Outro"
)

// Cropping systems for multi-product records.
const (
	SystemMonoculture = "monocultura"
	SystemIntercrop   = "consorcio"
	SystemAgroforest  = "saf"
)

// Item roles within a multi-crop record.
const (
	RolePrincipal = "principal"
	RoleSecondary = "secundario"
	RoleCover     = "cobertura"
)

// LocationNotInformed is the sentinel plot name for records with no usable
// location text.
const LocationNotInformed = "NÃO INFORMADO"

// ProtectedStatuses lists record states that block further edits through the
// bot (certification audit trail).
var ProtectedStatuses = []string{"Finalizado", "Auditado", "Enviado_Certificadora"}

// Location is the structured form of a free-text location mention.
type Location struct {
	Plot   string `json:"talhao" bson:"talhao"`
	PlotID int64  `json:"talhao_id,omitempty" bson:"talhao_id,omitempty"`
	Bed    string `json:"canteiro,omitempty" bson:"canteiro,omitempty"`
	Row    string `json:"linha,omitempty" bson:"linha,omitempty"`
}

// ActivityItem is one product at one location inside a record. Multi-crop
// records (consórcio, SAF) carry several items; legacy records exactly one.
type ActivityItem struct {
	Product  string   `json:"produto" bson:"produto"`
	Quantity float64  `json:"quantidade" bson:"quantidade"`
	Unit     string   `json:"unidade" bson:"unidade"`
	Location Location `json:"local" bson:"local"`
	Role     string   `json:"papel,omitempty" bson:"papel,omitempty"`

	Variety  string  `json:"variedade,omitempty" bson:"variedade,omitempty"`
	Stratum  string  `json:"estrato,omitempty" bson:"estrato,omitempty"`
	Lot      string  `json:"lote,omitempty" bson:"lote,omitempty"`
	Origin   string  `json:"origem,omitempty" bson:"origem,omitempty"`
	DoseVal  float64 `json:"dose_valor,omitempty" bson:"dose_valor,omitempty"`
	DoseUnit string  `json:"dose_unidade,omitempty" bson:"dose_unidade,omitempty"`
	Crop     string  `json:"cultura,omitempty" bson:"cultura,omitempty"`
	Phase    string  `json:"fase,omitempty" bson:"fase,omitempty"`
}

// Record is the canonical, storage-ready field-notebook entry.
type Record struct {
	ID           int64     `json:"id,omitempty"`
	PMOID        int64     `json:"pmo_id"`
	ActivityType string    `json:"tipo_atividade"`
	Date         time.Time `json:"data_registro"`

	// Legacy flat location text, kept for backward compatibility with the
	// pre-items schema. Items carry the structured location.
	LocationText string `json:"talhao_canteiro"`

	Items  []ActivityItem `json:"atividades"`
	System string         `json:"sistema"`

	// Observation carries structured AI notes and compliance alerts;
	// OriginalText the concatenated conversation history for audit.
	Observation  string `json:"observacao,omitempty"`
	OriginalText string `json:"observacao_original"`

	// Financial / origin fields.
	Origin     string  `json:"origem,omitempty"`
	TotalValue float64 `json:"valor_total,omitempty"`

	// Harvest-specific fields.
	Destination string `json:"destino,omitempty"`
	Grade       string `json:"classificacao,omitempty"`
	Lot         string `json:"lote,omitempty"`

	// Discard / loss tracking.
	HadDiscards bool    `json:"houve_descartes,omitempty"`
	DiscardQty  float64 `json:"qtd_descartes,omitempty"`
	DiscardUnit string  `json:"unidade_descartes,omitempty"`

	// Manejo-specific fields.
	OperationType string   `json:"tipo_operacao,omitempty"`
	Responsible   string   `json:"responsavel,omitempty"`
	Equipment     []string `json:"equipamentos,omitempty"`

	// Type-specific attributes synthesized at insert time.
	TechnicalDetails map[string]any `json:"detalhes_tecnicos,omitempty"`

	Status   string `json:"status,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// PrimaryItem returns the principal item of the record, or a placeholder item
// when the record has none.
func (r *Record) PrimaryItem() ActivityItem {
	if len(r.Items) > 0 {
		return r.Items[0]
	}
	return ActivityItem{Product: LocationNotInformed, Unit: "unid", Role: RolePrincipal}
}

// IsProtectedStatus reports whether a record status blocks further edits.
func IsProtectedStatus(status string) bool {
	for _, s := range ProtectedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Plot is a named field area resolved from free text by the storage layer.
type Plot struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}
