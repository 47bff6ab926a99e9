package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"contractparser/internal/domain"
	"contractparser/internal/record"
	"contractparser/internal/record/recordtest"
)

func loadRecord(t *testing.T, s string) record.Record {
	t.Helper()
	rec, err := record.Load([]byte(s))
	require.NoError(t, err)
	return rec
}

func containsKey(v record.Value, key string) bool {
	switch v.Kind() {
	case record.KindObject:
		obj, _ := v.AsObject()
		found := false
		obj.Range(func(k string, child record.Value) bool {
			found = k == key || containsKey(child, key)
			return !found
		})
		return found
	case record.KindList:
		items, _ := v.AsList()
		for _, item := range items {
			if containsKey(item, key) {
				return true
			}
		}
	}
	return false
}

func TestStructured_EndToEnd(t *testing.T) {
	rec := loadRecord(t, `{"contract_value": {"value": 1000, "confidence": 0.9, "source_text": "Total: $1000"}}`)

	b, err := json.Marshal(Structured(rec))
	require.NoError(t, err)
	assert.JSONEq(t, `{"contract_value": {"value": 1000, "confidence": 0.9}}`, string(b))
}

func TestStructured_NoSourceTextAnywhere(t *testing.T) {
	out := Structured(recordtest.Sample(t))
	assert.False(t, containsKey(record.ObjectValue(out), record.AttrSourceText))
}

func TestStructured_FieldKeys(t *testing.T) {
	rec := recordtest.Sample(t)
	out := Structured(rec)

	cv, ok := out.Get(record.FieldContractValue)
	require.True(t, ok)
	obj, _ := cv.AsObject()
	assert.Equal(t, []string{"value", "confidence", "currency"}, obj.Keys())

	parties, _ := out.Get(record.FieldContractParties)
	pobj, _ := parties.AsObject()
	vendor, _ := pobj.Get("vendor")
	vobj, _ := vendor.AsObject()
	assert.Equal(t, []string{"value", "confidence"}, vobj.Keys())

	renewal, _ := out.Get(record.FieldRenewalClause)
	robj, _ := renewal.AsObject()
	assert.Equal(t, []string{"auto_renews", "renewal_period_months", "cancellation_notice_days", "confidence"}, robj.Keys())

	notes, _ := out.Get(record.FieldExtractionNotes)
	assert.Equal(t, "Contract appears complete.", notes.Text())
}

func TestStructured_ConfidenceNullWhenMissing(t *testing.T) {
	rec := loadRecord(t, `{"start_date": {"source_text": "x", "value": "2024-01-01"}}`)
	b, err := json.Marshal(Structured(rec))
	require.NoError(t, err)
	assert.Equal(t, `{"start_date":{"value":"2024-01-01","confidence":null}}`, string(b))
}

func TestStructured_KeepsManualReviewFlag(t *testing.T) {
	rec := recordtest.Sample(t)
	_, rec, err := record.Apply(rec, record.Patch{
		Path:  record.FieldPath{Field: record.FieldPaymentSchedule, Attr: record.AttrValue},
		Value: record.String("Net 45"),
	})
	require.NoError(t, err)

	ps, _ := Structured(rec).Get(record.FieldPaymentSchedule)
	obj, _ := ps.AsObject()
	assert.Equal(t, []string{"value", "confidence", "due_days", "manually_reviewed"}, obj.Keys())
}

func TestRows_EndToEnd(t *testing.T) {
	rec := loadRecord(t, `{"contract_value": {"value": 1000, "confidence": 0.9, "source_text": "Total: $1000"}}`)
	assert.Equal(t, []Row{{Field: "contract_value", Value: "1000", Confidence: "0.9", SourceText: "Total: $1000"}}, Rows(rec))
}

func TestRows_FullRecord(t *testing.T) {
	rows := Rows(recordtest.Sample(t))

	fields := make([]string, len(rows))
	for i, r := range rows {
		fields[i] = r.Field
	}
	assert.Equal(t, []string{
		"contract_parties.vendor",
		"contract_parties.client",
		"contract_value",
		"billing_frequency",
		"payment_schedule",
		"usage_tiers",
		"renewal_clause",
		"late_fee",
		"start_date",
		"end_date",
		"special_terms",
		"extraction_notes",
	}, fields)

	assert.Equal(t, "Acme Cloud Inc.", rows[0].Value)
	assert.True(t, strings.HasPrefix(rows[5].Value, `[{"tier_name":"Base"`))
	assert.Equal(t, "0.7", rows[5].Confidence)
	assert.Equal(t, "", rows[6].Value)
	assert.Equal(t, "0.75", rows[6].Confidence)
	assert.Equal(t, Row{Field: "extraction_notes", Value: "Contract appears complete."}, rows[11])
}

func TestRows_ListsAndScalars(t *testing.T) {
	rec := loadRecord(t, `{"misc": {"tags": ["a", "b"], "flag": true, "nothing": null}}`)
	assert.Equal(t, []Row{
		{Field: "misc.tags", Value: `["a","b"]`},
		{Field: "misc.flag", Value: "true"},
		{Field: "misc.nothing", Value: ""},
	}, Rows(rec))
}

// Rebuilding a tree from the dotted paths yields the same leaves as a
// direct walk of the record.
func TestRows_ReconstructMatchesTraversal(t *testing.T) {
	rec := recordtest.Sample(t)

	rebuilt := map[string]Row{}
	for _, r := range Rows(rec) {
		rebuilt[r.Field] = r
	}

	direct := map[string]Row{}
	var walk func(path string, v record.Value)
	walk = func(path string, v record.Value) {
		obj, ok := v.AsObject()
		if ok && !obj.Has("value") && !obj.Has("confidence") {
			obj.Range(func(k string, child record.Value) bool {
				walk(path+"."+k, child)
				return true
			})
			return
		}
		row := Row{Field: path}
		if ok {
			val, _ := obj.Get("value")
			conf, _ := obj.Get("confidence")
			src, _ := obj.Get("source_text")
			row.Value, row.Confidence, row.SourceText = val.Text(), conf.Text(), src.Text()
		} else {
			row.Value = v.Text()
		}
		direct[path] = row
	}
	rec.Object().Range(func(k string, v record.Value) bool {
		walk(k, v)
		return true
	})

	assert.Equal(t, direct, rebuilt)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rec := loadRecord(t, `{"contract_value": {"value": 1000, "confidence": 0.9, "source_text": "Total: \"$1000\""}}`)
	require.NoError(t, WriteCSV(&buf, rec))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"field", "value", "confidence", "source_text"},
		{"contract_value", "1000", "0.9", `Total: "$1000"`},
	}, records)
}

func TestRenderCSV_StartsWithBOM(t *testing.T) {
	body, err := RenderCSV(recordtest.Sample(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, BOM))
}

func TestWriteXLSX(t *testing.T) {
	body, err := WriteXLSX(recordtest.Sample(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Billing", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Billing")
	require.NoError(t, err)
	assert.Equal(t, []string{"field", "value", "confidence", "source_text"}, rows[0])
	assert.Equal(t, "contract_parties.vendor", rows[1][0])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendor", "Acme Cloud Inc."}, summary[0])
	assert.Equal(t, []string{"Contract value", "120000 USD"}, summary[2])
}

func TestRender(t *testing.T) {
	id := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	rec := recordtest.Sample(t)

	out, err := Render(domain.ExportFormatJSON, id, rec)
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.ContentType)
	assert.Equal(t, "contract_1b4e28ba_billing.json", out.Filename)
	assert.Contains(t, string(out.Body), "\n  \"billing_configuration\": {")
	assert.NotContains(t, string(out.Body), "source_text")

	var doc struct {
		ContractID string         `json:"contract_id"`
		Billing    map[string]any `json:"billing_configuration"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &doc))
	assert.Equal(t, id.String(), doc.ContractID)
	assert.Len(t, doc.Billing, 11)

	out, err = Render(domain.ExportFormatCSV, id, rec)
	require.NoError(t, err)
	assert.Equal(t, "contract_1b4e28ba_billing.csv", out.Filename)

	out, err = Render(domain.ExportFormatXLSX, id, rec)
	require.NoError(t, err)
	assert.Equal(t, "contract_1b4e28ba_billing.xlsx", out.Filename)

	_, err = Render("pdf", id, rec)
	assert.ErrorIs(t, err, domain.ErrInvalidExportFormat)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Master_Services_Agreement_v2_.pdf", SanitizeFilename("Master Services Agreement (v2).pdf"))
	assert.Equal(t, "contract", SanitizeFilename("???"))
	assert.Len(t, SanitizeFilename(strings.Repeat("a", 150)), 100)
}
