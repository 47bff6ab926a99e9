package export

import "contractparser/internal/record"

// Row is one line of the flat tabular export.
type Row struct {
	Field      string
	Value      string
	Confidence string
	SourceText string
}

// Rows flattens the record into dotted-path rows. Objects carrying a value
// or confidence are leaves; other objects are walked in key order.
func Rows(rec record.Record) []Row {
	var rows []Row
	if rec.IsZero() {
		return rows
	}
	rec.Object().Range(func(key string, v record.Value) bool {
		rows = appendRows(rows, key, v)
		return true
	})
	return rows
}

func appendRows(rows []Row, path string, v record.Value) []Row {
	obj, ok := v.AsObject()
	if !ok {
		return append(rows, Row{Field: path, Value: v.Text()})
	}
	if obj.Has(record.AttrValue) || obj.Has(record.AttrConfidence) {
		value, _ := obj.Get(record.AttrValue)
		confidence, _ := obj.Get(record.AttrConfidence)
		source, _ := obj.Get(record.AttrSourceText)
		return append(rows, Row{
			Field:      path,
			Value:      value.Text(),
			Confidence: confidence.Text(),
			SourceText: source.Text(),
		})
	}
	obj.Range(func(key string, child record.Value) bool {
		rows = appendRows(rows, path+record.PathSeparator+key, child)
		return true
	})
	return rows
}
