package record_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractparser/internal/record"
	"contractparser/internal/record/recordtest"
)

// mutateSample decodes the sample, applies fn to the generic map and
// re-encodes it.
func mutateSample(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(recordtest.SampleJSON), &m))
	fn(m)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestBuild_ValidRecord(t *testing.T) {
	rec := recordtest.Sample(t)

	want := append(append([]string{}, record.FieldNames...), record.FieldExtractionNotes)
	assert.Equal(t, want, rec.Object().Keys())
	assert.Equal(t, "Contract appears complete.", rec.ExtractionNotes())
}

func TestBuild_OrdersFieldsRegardlessOfInput(t *testing.T) {
	raw := mutateSample(t, func(map[string]any) {})
	// encoding/json sorts map keys, so the input is alphabetical.
	rec, err := record.Build(raw)
	require.NoError(t, err)
	assert.Equal(t, record.FieldContractParties, rec.Object().Keys()[0])
	assert.Equal(t, record.FieldExtractionNotes, rec.Object().Keys()[len(record.FieldNames)])
}

func TestBuild_NullNotesBecomeEmpty(t *testing.T) {
	raw := mutateSample(t, func(m map[string]any) { m["extraction_notes"] = nil })
	rec, err := record.Build(raw)
	require.NoError(t, err)

	notes, ok := rec.Get(record.FieldExtractionNotes)
	require.True(t, ok)
	s, isString := notes.AsString()
	assert.True(t, isString)
	assert.Empty(t, s)
}

func TestBuild_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(m map[string]any)
		wantField string
	}{
		{
			name:      "missing top-level field",
			mutate:    func(m map[string]any) { delete(m, "late_fee") },
			wantField: "late_fee",
		},
		{
			name:      "unexpected top-level field",
			mutate:    func(m map[string]any) { m["discounts"] = map[string]any{"confidence": 0.5} },
			wantField: "discounts",
		},
		{
			name: "confidence above one",
			mutate: func(m map[string]any) {
				m["contract_value"].(map[string]any)["confidence"] = 1.5
			},
			wantField: "contract_value.confidence",
		},
		{
			name: "negative confidence",
			mutate: func(m map[string]any) {
				m["start_date"].(map[string]any)["confidence"] = -0.1
			},
			wantField: "start_date.confidence",
		},
		{
			name: "missing confidence",
			mutate: func(m map[string]any) {
				delete(m["end_date"].(map[string]any), "confidence")
			},
			wantField: "end_date.confidence",
		},
		{
			name: "missing value",
			mutate: func(m map[string]any) {
				delete(m["payment_schedule"].(map[string]any), "value")
			},
			wantField: "payment_schedule.value",
		},
		{
			name: "unknown billing frequency",
			mutate: func(m map[string]any) {
				m["billing_frequency"].(map[string]any)["value"] = "weekly"
			},
			wantField: "billing_frequency.value",
		},
		{
			name: "missing vendor",
			mutate: func(m map[string]any) {
				delete(m["contract_parties"].(map[string]any), "vendor")
			},
			wantField: "contract_parties.vendor",
		},
		{
			name: "non-string special term",
			mutate: func(m map[string]any) {
				m["special_terms"].(map[string]any)["value"] = []any{42}
			},
			wantField: "special_terms.value.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := record.Build(mutateSample(t, tt.mutate))
			require.Error(t, err)
			assert.ErrorIs(t, err, record.ErrInvalidExtractionSchema)

			var se *record.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantField, se.Field)
		})
	}
}

func TestBuild_MalformedJSON(t *testing.T) {
	_, err := record.Build([]byte(`{"contract_value": `))
	assert.ErrorIs(t, err, record.ErrInvalidExtractionSchema)
}

func TestBuild_NotAnObject(t *testing.T) {
	_, err := record.Build([]byte(`[1, 2, 3]`))
	var se *record.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "(root)", se.Field)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	rec := recordtest.Sample(t)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `{"contract_parties":`))
	assert.Contains(t, string(b), `"value":120000`)

	var back record.Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, rec.Equal(back))
	assert.Equal(t, rec.Object().Keys(), back.Object().Keys())
}

func TestRecord_ZeroMarshalsNull(t *testing.T) {
	var rec record.Record
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var back record.Record
	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.True(t, back.IsZero())
}

func TestRecord_ScanAndValue(t *testing.T) {
	rec := recordtest.Sample(t)

	v, err := rec.Value()
	require.NoError(t, err)

	var scanned record.Record
	require.NoError(t, scanned.Scan(v))
	assert.True(t, rec.Equal(scanned))

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	assert.Error(t, scanned.Scan(42))
}

func TestLoad_AcceptsPartialRecord(t *testing.T) {
	rec, err := record.Load([]byte(`{"contract_value": {"value": 1000, "confidence": 0.9, "source_text": "Total: $1000"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"contract_value"}, rec.Object().Keys())

	_, err = record.Load([]byte(`"text"`))
	assert.Error(t, err)
}

func TestLoad_RestoresDeclaredFieldOrder(t *testing.T) {
	sample := recordtest.Sample(t)

	// Stores such as jsonb hand keys back sorted by length.
	shuffled := record.NewObject()
	for _, name := range []string{
		record.FieldEndDate, record.FieldLateFee, record.FieldStartDate, record.FieldUsageTiers,
		record.FieldSpecialTerms, record.FieldRenewalClause, record.FieldContractValue,
		record.FieldExtractionNotes, record.FieldPaymentSchedule, record.FieldBillingFrequency,
		record.FieldContractParties,
	} {
		v, ok := sample.Get(name)
		require.True(t, ok, name)
		shuffled.Set(name, v)
	}
	shuffled.Set("reviewer", record.String("ops"))
	raw, err := shuffled.MarshalJSON()
	require.NoError(t, err)

	rec, err := record.Load(raw)
	require.NoError(t, err)
	want := append(append([]string{}, record.FieldNames...), record.FieldExtractionNotes, "reviewer")
	assert.Equal(t, want, rec.Object().Keys())

	value, _ := rec.Field(record.FieldContractValue)
	assert.Equal(t, "120000", value.Value().Text())
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	rec := recordtest.Sample(t)
	clone := rec.Clone()
	clone.Object().Set(record.FieldExtractionNotes, record.String("changed"))

	assert.Equal(t, "Contract appears complete.", rec.ExtractionNotes())
	assert.False(t, rec.Equal(clone))
}

func TestAccessors(t *testing.T) {
	rec := recordtest.Sample(t)

	vendor, ok := rec.Vendor()
	require.True(t, ok)
	assert.Equal(t, "Acme Cloud Inc.", vendor.String())
	assert.InDelta(t, 0.95, vendor.Confidence(), 1e-9)

	client, ok := rec.Client()
	require.True(t, ok)
	assert.Equal(t, "Globex Corp", client.String())

	cv := rec.ContractValue()
	require.NotNil(t, cv.Amount)
	assert.InDelta(t, 120000, *cv.Amount, 1e-9)
	require.NotNil(t, cv.Currency)
	assert.Equal(t, "USD", *cv.Currency)

	bf := rec.BillingFrequency()
	require.NotNil(t, bf.Frequency)
	assert.Equal(t, "monthly", *bf.Frequency)
	assert.Nil(t, bf.CustomDescription)

	ps := rec.PaymentSchedule()
	require.NotNil(t, ps.DueDays)
	assert.InDelta(t, 30, *ps.DueDays, 1e-9)

	tiers := rec.UsageTiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "Overage", *tiers[1].Name)
	assert.Nil(t, tiers[1].MaxUnits)

	rc := rec.RenewalClause()
	require.NotNil(t, rc.AutoRenews)
	assert.True(t, *rc.AutoRenews)

	lf := rec.LateFee()
	require.NotNil(t, lf.RatePercent)
	assert.InDelta(t, 1.5, *lf.RatePercent, 1e-9)
	assert.Nil(t, lf.FlatAmount)

	assert.Equal(t, "2024-01-01", *rec.StartDate())
	assert.Equal(t, "2024-12-31", *rec.EndDate())
	assert.Equal(t, []string{"Price lock for 24 months"}, rec.SpecialTerms())
}

func TestPopulatedFields(t *testing.T) {
	raw := mutateSample(t, func(m map[string]any) {
		m["late_fee"] = map[string]any{"applies": nil, "rate_percent": nil, "confidence": 0.0}
		m["end_date"].(map[string]any)["value"] = nil
	})
	rec, err := record.Build(raw)
	require.NoError(t, err)

	populated := rec.PopulatedFields()
	assert.Contains(t, populated, record.FieldContractParties)
	assert.Contains(t, populated, record.FieldRenewalClause)
	assert.NotContains(t, populated, record.FieldLateFee)
	assert.NotContains(t, populated, record.FieldEndDate)
}
