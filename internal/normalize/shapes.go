package normalize

import (
	"bytes"
	"encoding/json"
)

// Records arrive in three historical shapes. Shape detection looks at which
// keys carry a usable value, in this order:
//
//	ShapeItems        — non-empty "atividades" list (current form)
//	ShapeIntermediate — non-null "produto_principal", optional secondaries
//	ShapeLegacy       — flat "produto"/"quantidade"/"unidade" keys
//
// Old exporters wrote "atividades": [] and "produto_principal": null next
// to the flat keys, so presence alone is not enough.
type Shape int

const (
	ShapeItems Shape = iota
	ShapeIntermediate
	ShapeLegacy
	ShapeUnknown
)

// rawRecord is the superset of all three shapes as found in stored
// documents. produto_principal is either a plain name string with the
// quantity in the top-level quantidade_valor/quantidade_unidade keys, or a
// full object; produtos_secundarios mixes name strings and objects the same
// way.
type rawRecord struct {
	Items []json.RawMessage `json:"atividades"`

	ProductPrimary    json.RawMessage   `json:"produto_principal"`
	ProductsSecondary []json.RawMessage `json:"produtos_secundarios"`
	QuantityVal       float64           `json:"quantidade_valor"`
	QuantityUnit      string            `json:"quantidade_unidade"`

	Product     string  `json:"produto"`
	Quantity    float64 `json:"quantidade"`
	Unit        string  `json:"unidade"`
	LocationRaw string  `json:"local"`
}

type rawProduct struct {
	Name     string  `json:"nome"`
	Quantity float64 `json:"quantidade"`
	Unit     string  `json:"unidade"`
	Variety  string  `json:"variedade"`
}

// decodeProduct accepts either a bare name string or a product object.
// Null, empty and nameless values report !ok.
func decodeProduct(data json.RawMessage) (rawProduct, bool) {
	data = bytes.TrimSpace(data)
	if isNullValue(data) {
		return rawProduct{}, false
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil || name == "" {
			return rawProduct{}, false
		}
		return rawProduct{Name: name}, true
	}
	var p rawProduct
	if err := json.Unmarshal(data, &p); err != nil || p.Name == "" {
		return rawProduct{}, false
	}
	return p, true
}

func isNullValue(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func isEmptyList(data json.RawMessage) bool {
	if isNullValue(data) {
		return true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return true
	}
	return len(items) == 0
}

// DetectShape classifies a raw JSON activity document.
func DetectShape(data []byte) Shape {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return ShapeUnknown
	}
	if items, ok := keys["atividades"]; ok && !isEmptyList(items) {
		return ShapeItems
	}
	if primary, ok := keys["produto_principal"]; ok && !isNullValue(primary) {
		return ShapeIntermediate
	}
	if product, ok := keys["produto"]; ok && !isNullValue(product) {
		return ShapeLegacy
	}
	return ShapeUnknown
}
