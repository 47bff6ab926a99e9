package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"contractparser/internal/domain"
	"contractparser/internal/export"
	"contractparser/internal/record"
)

var validateCmd = &cobra.Command{
	Use:   "validate RECORD",
	Short: "Validate a billing record against the extraction schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read record")
		}
		rec, err := record.Build(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid: %d populated fields (%s)\n",
			len(rec.PopulatedFields()), strings.Join(rec.PopulatedFields(), ", "))
		return err
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch RECORD",
	Short: "Correct one field of a billing record in place",
	Long: `Replace one value in a billing record file. --field is "name" or
"name.attribute"; --value is JSON.

Examples:
  contractctl patch msa.billing.json --field payment_schedule.due_days --value 45
  contractctl patch msa.billing.json --field late_fee.applies --value false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, _ := cmd.Flags().GetString("field")
		raw, _ := cmd.Flags().GetString("value")
		reason, _ := cmd.Flags().GetString("reason")
		return patchFile(cmd.OutOrStdout(), args[0], field, raw, reason)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export RECORD",
	Short: "Export a billing record as JSON, CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("out")
		idFlag, _ := cmd.Flags().GetString("contract-id")
		return exportFile(cmd.OutOrStdout(), args[0], format, idFlag, output)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary RECORD",
	Short: "Print the key billing terms of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(args[0])
		if err != nil {
			return err
		}
		return writeSummary(cmd.OutOrStdout(), rec)
	},
}

func init() {
	patchCmd.Flags().String("field", "", "field path, e.g. payment_schedule.due_days")
	patchCmd.Flags().String("value", "", "new value as JSON")
	patchCmd.Flags().String("reason", "", "why the value was corrected (printed with the change)")
	_ = patchCmd.MarkFlagRequired("field")
	_ = patchCmd.MarkFlagRequired("value")

	exportCmd.Flags().String("format", "csv", "export format: json, csv or xlsx")
	exportCmd.Flags().String("out", "", "output file, or - for stdout (default: contract_<id>_billing.<ext>)")
	exportCmd.Flags().String("contract-id", "", "contract ID used in the JSON export and file name (default: random)")

	rootCmd.AddCommand(validateCmd, patchCmd, exportCmd, summaryCmd)
}

func readRecord(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Record{}, eris.Wrap(err, "read record")
	}
	rec, err := record.Load(data)
	if err != nil {
		return record.Record{}, err
	}
	if rec.IsZero() {
		return record.Record{}, eris.Errorf("%s holds no billing record", path)
	}
	return rec, nil
}

func patchFile(w io.Writer, path, field, raw, reason string) error {
	rec, err := readRecord(path)
	if err != nil {
		return err
	}
	fp, err := record.ParseFieldPath(field)
	if err != nil {
		return err
	}
	value, err := record.Parse([]byte(raw))
	if err != nil {
		return eris.Wrap(err, "parse --value as JSON")
	}
	patch := record.Patch{Path: fp, Value: value}
	if reason != "" {
		patch.Reason = &reason
	}
	old, updated, err := record.Apply(rec, patch)
	if err != nil {
		return err
	}
	body, err := updated.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return eris.Wrap(err, "write record")
	}
	if patch.Reason != nil {
		_, err = fmt.Fprintf(w, "%s: %s -> %s (%s)\n", fp, old.Text(), value.Text(), *patch.Reason)
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %s -> %s\n", fp, old.Text(), value.Text())
	return err
}

func exportFile(w io.Writer, path, format, idFlag, output string) error {
	rec, err := readRecord(path)
	if err != nil {
		return err
	}
	f, err := domain.ParseExportFormat(format)
	if err != nil {
		return err
	}
	id := uuid.New()
	if idFlag != "" {
		if id, err = uuid.Parse(idFlag); err != nil {
			return eris.Wrap(err, "parse --contract-id")
		}
	}
	rendered, err := export.Render(f, id, rec)
	if err != nil {
		return err
	}
	if output == "" {
		output = rendered.Filename
	}
	if output == "-" {
		_, err = w.Write(rendered.Body)
		return err
	}
	if err := os.WriteFile(output, rendered.Body, 0o644); err != nil {
		return eris.Wrap(err, "write export")
	}
	_, err = fmt.Fprintf(w, "wrote %s\n", output)
	return err
}

func writeSummary(w io.Writer, rec record.Record) error {
	line := func(label, value string) {
		fmt.Fprintf(w, "%-26s %s\n", label+":", value)
	}
	party := func(f record.Field, ok bool) string {
		if !ok {
			return "-"
		}
		return f.Value().Text()
	}

	line("Vendor", party(rec.Vendor()))
	line("Client", party(rec.Client()))

	cv := rec.ContractValue()
	line("Contract value", joinOpt(fmtFloat(cv.Amount), strOpt(cv.Currency)))
	bf := rec.BillingFrequency()
	line("Billing frequency", joinOpt(strOpt(bf.Frequency), strOpt(bf.CustomDescription)))
	ps := rec.PaymentSchedule()
	line("Payment terms", joinOpt(strOpt(ps.Terms), daysOpt(ps.DueDays)))
	line("Usage tiers", fmt.Sprintf("%d", len(rec.UsageTiers())))

	rc := rec.RenewalClause()
	renew := "-"
	if rc.AutoRenews != nil {
		renew = fmt.Sprintf("auto renews: %t", *rc.AutoRenews)
	}
	line("Renewal", joinOpt(renew, monthsOpt(rc.RenewalPeriodMonths)))
	line("Cancellation notice", daysOpt(rc.CancellationNoticeDays))

	lf := rec.LateFee()
	late := "-"
	if lf.Applies != nil {
		late = fmt.Sprintf("applies: %t", *lf.Applies)
	}
	if lf.RatePercent != nil {
		late = joinOpt(late, fmtFloat(lf.RatePercent)+"%")
	}
	line("Late fee", joinOpt(late, graceOpt(lf.GracePeriodDays)))

	line("Term", strOpt(rec.StartDate())+" to "+strOpt(rec.EndDate()))
	line("Special terms", fmt.Sprintf("%d", len(rec.SpecialTerms())))
	if notes := rec.ExtractionNotes(); notes != "" {
		line("Notes", notes)
	}
	return nil
}

func strOpt(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func fmtFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return record.Float(*f).Text()
}

func daysOpt(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmtFloat(f) + " days"
}

func monthsOpt(f *float64) string {
	if f == nil {
		return "-"
	}
	return "every " + fmtFloat(f) + " months"
}

func graceOpt(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmtFloat(f) + " day grace"
}

// joinOpt joins the present parts with ", " and returns "-" if none are present.
func joinOpt(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "-" && p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "-"
	}
	return strings.Join(kept, ", ")
}
