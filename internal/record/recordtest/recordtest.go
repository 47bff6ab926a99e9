// Package recordtest provides billing record fixtures for tests.
package recordtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"contractparser/internal/record"
)

// SampleJSON is a complete extraction result covering every billing field.
const SampleJSON = `{
  "contract_parties": {
    "vendor": {"value": "Acme Cloud Inc.", "confidence": 0.95, "source_text": "Acme Cloud Inc. (\"Provider\")"},
    "client": {"value": "Globex Corp", "confidence": 0.9, "source_text": "Globex Corp (\"Customer\")"}
  },
  "contract_value": {"value": 120000, "currency": "USD", "confidence": 0.9, "source_text": "Total fees: $120,000"},
  "billing_frequency": {"value": "monthly", "custom_description": null, "confidence": 0.85, "source_text": "invoiced monthly"},
  "payment_schedule": {"value": "Net 30", "due_days": 30, "confidence": 0.8, "source_text": "due within thirty (30) days"},
  "usage_tiers": {
    "value": [
      {"tier_name": "Base", "min_units": 0, "max_units": 1000, "price_per_unit": 0.5, "flat_fee": null, "unit_type": "API calls"},
      {"tier_name": "Overage", "min_units": 1001, "max_units": null, "price_per_unit": 0.4, "flat_fee": null, "unit_type": "API calls"}
    ],
    "confidence": 0.7,
    "source_text": "Usage above 1,000 calls billed at $0.40"
  },
  "renewal_clause": {"auto_renews": true, "renewal_period_months": 12, "cancellation_notice_days": 60, "confidence": 0.75, "source_text": "renews automatically for successive 12 month terms"},
  "late_fee": {"applies": true, "rate_percent": 1.5, "grace_period_days": 10, "flat_amount": null, "confidence": 0.6, "source_text": "1.5% per month on overdue balances"},
  "start_date": {"value": "2024-01-01", "confidence": 0.95, "source_text": "Effective Date: January 1, 2024"},
  "end_date": {"value": "2024-12-31", "confidence": 0.9, "source_text": "through December 31, 2024"},
  "special_terms": {"value": ["Price lock for 24 months"], "confidence": 0.5, "source_text": "prices fixed for 24 months"},
  "extraction_notes": "Contract appears complete."
}`

// Sample builds SampleJSON into a validated record.
func Sample(t testing.TB) record.Record {
	t.Helper()
	rec, err := record.Build([]byte(SampleJSON))
	require.NoError(t, err)
	return rec
}
