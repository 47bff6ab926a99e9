package export

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"contractparser/internal/record"
)

// Structured renders the billing record without provenance: source_text
// is removed at every level and extraction fields list value and
// confidence before their auxiliary attributes.
func Structured(rec record.Record) *record.Object {
	out := record.NewObject()
	if rec.IsZero() {
		return out
	}
	rec.Object().Range(func(key string, v record.Value) bool {
		out.Set(key, structuredValue(v))
		return true
	})
	return out
}

func structuredValue(v record.Value) record.Value {
	switch v.Kind() {
	case record.KindObject:
		obj, _ := v.AsObject()
		if obj.Has(record.AttrValue) {
			return record.ObjectValue(structuredField(obj))
		}
		return record.ObjectValue(stripSourceText(obj))
	case record.KindList:
		items, _ := v.AsList()
		out := make([]record.Value, len(items))
		for i := range items {
			out[i] = structuredValue(items[i])
		}
		return record.List(out...)
	default:
		return v.Clone()
	}
}

func structuredField(obj *record.Object) *record.Object {
	value, _ := obj.Get(record.AttrValue)
	confidence, _ := obj.Get(record.AttrConfidence)
	out := record.NewObject().
		Set(record.AttrValue, structuredValue(value)).
		Set(record.AttrConfidence, confidence.Clone())
	obj.Range(func(key string, v record.Value) bool {
		switch key {
		case record.AttrValue, record.AttrConfidence, record.AttrSourceText:
		default:
			out.Set(key, structuredValue(v))
		}
		return true
	})
	return out
}

func stripSourceText(obj *record.Object) *record.Object {
	out := record.NewObject()
	obj.Range(func(key string, v record.Value) bool {
		if key != record.AttrSourceText {
			out.Set(key, structuredValue(v))
		}
		return true
	})
	return out
}

// Document is the JSON export envelope.
type Document struct {
	ContractID           uuid.UUID      `json:"contract_id"`
	BillingConfiguration *record.Object `json:"billing_configuration"`
}

// NewDocument builds the JSON export for a contract.
func NewDocument(contractID uuid.UUID, rec record.Record) Document {
	return Document{ContractID: contractID, BillingConfiguration: Structured(rec)}
}

// MarshalJSON renders the document with two-space indentation.
func MarshalJSON(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
