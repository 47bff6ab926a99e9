package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"contractparser/internal/record"
)

const (
	billingSheet = "Billing"
	summarySheet = "Summary"
)

// WriteXLSX renders the record as a workbook with the flat rows on one
// sheet and a readable summary on another.
func WriteXLSX(rec record.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), billingSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := setRow(f, billingSheet, 1, header); err != nil {
		return nil, err
	}
	for i, r := range Rows(rec) {
		if err := setRow(f, billingSheet, i+2, []any{r.Field, r.Value, r.Confidence, r.SourceText}); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	for i, line := range summaryLines(rec) {
		if err := setRow(f, summarySheet, i+1, []any{line[0], line[1]}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func summaryLines(rec record.Record) [][2]string {
	vendor, _ := rec.Vendor()
	client, _ := rec.Client()
	cv := rec.ContractValue()
	bf := rec.BillingFrequency()
	ps := rec.PaymentSchedule()
	rc := rec.RenewalClause()
	lf := rec.LateFee()

	amount := formatFloat(cv.Amount)
	if amount != "" && cv.Currency != nil {
		amount += " " + *cv.Currency
	}
	frequency := deref(bf.Frequency)
	if bf.CustomDescription != nil {
		frequency += " (" + *bf.CustomDescription + ")"
	}

	lines := [][2]string{
		{"Vendor", vendor.String()},
		{"Client", client.String()},
		{"Contract value", amount},
		{"Billing frequency", frequency},
		{"Payment terms", deref(ps.Terms)},
		{"Due days", formatFloat(ps.DueDays)},
		{"Start date", deref(rec.StartDate())},
		{"End date", deref(rec.EndDate())},
		{"Auto renews", formatBool(rc.AutoRenews)},
		{"Renewal period (months)", formatFloat(rc.RenewalPeriodMonths)},
		{"Cancellation notice (days)", formatFloat(rc.CancellationNoticeDays)},
		{"Late fee applies", formatBool(lf.Applies)},
		{"Late fee rate (%)", formatFloat(lf.RatePercent)},
		{"Late fee grace period (days)", formatFloat(lf.GracePeriodDays)},
	}
	for i, t := range rec.UsageTiers() {
		desc := deref(t.Name)
		if t.PricePerUnit != nil {
			desc += fmt.Sprintf(" @ %s per %s", formatFloat(t.PricePerUnit), deref(t.UnitType))
		}
		lines = append(lines, [2]string{fmt.Sprintf("Usage tier %d", i+1), strings.TrimSpace(desc)})
	}
	if terms := rec.SpecialTerms(); len(terms) > 0 {
		lines = append(lines, [2]string{"Special terms", strings.Join(terms, "; ")})
	}
	if notes := rec.ExtractionNotes(); notes != "" {
		lines = append(lines, [2]string{"Extraction notes", notes})
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "Yes"
	}
	return "No"
}
