package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Top-level billing fields in declared order.
const (
	FieldContractParties  = "contract_parties"
	FieldContractValue    = "contract_value"
	FieldBillingFrequency = "billing_frequency"
	FieldPaymentSchedule  = "payment_schedule"
	FieldUsageTiers       = "usage_tiers"
	FieldRenewalClause    = "renewal_clause"
	FieldLateFee          = "late_fee"
	FieldStartDate        = "start_date"
	FieldEndDate          = "end_date"
	FieldSpecialTerms     = "special_terms"
	FieldExtractionNotes  = "extraction_notes"
)

// Attribute keys shared by every extraction field.
const (
	AttrValue            = "value"
	AttrConfidence       = "confidence"
	AttrSourceText       = "source_text"
	AttrManuallyReviewed = "manually_reviewed"
)

// FieldNames lists the billing fields in the order they are stored and exported.
var FieldNames = []string{
	FieldContractParties,
	FieldContractValue,
	FieldBillingFrequency,
	FieldPaymentSchedule,
	FieldUsageTiers,
	FieldRenewalClause,
	FieldLateFee,
	FieldStartDate,
	FieldEndDate,
	FieldSpecialTerms,
}

// BillingFrequencies are the accepted billing_frequency values.
var BillingFrequencies = []string{"monthly", "quarterly", "annually", "one-time", "custom"}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []any{typ, "null"}}
}

func confidenceSchema() map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": 1}
}

// fieldSchema describes an extraction field. valueSchema is nil for fields
// that carry only auxiliary attributes.
func fieldSchema(valueSchema map[string]any, aux map[string]any) map[string]any {
	props := map[string]any{
		AttrConfidence: confidenceSchema(),
		AttrSourceText: nullable("string"),
	}
	required := []any{AttrConfidence}
	if valueSchema != nil {
		props[AttrValue] = valueSchema
		required = append(required, AttrValue)
	}
	for k, s := range aux {
		props[k] = s
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func partySchema() map[string]any {
	return fieldSchema(nullable("string"), nil)
}

func tierSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tier_name":      nullable("string"),
			"min_units":      nullable("number"),
			"max_units":      nullable("number"),
			"price_per_unit": nullable("number"),
			"flat_fee":       nullable("number"),
			"unit_type":      nullable("string"),
		},
	}
}

func fieldSchemas() map[string]map[string]any {
	frequencies := []any{nil}
	for _, f := range BillingFrequencies {
		frequencies = append(frequencies, f)
	}
	return map[string]map[string]any{
		FieldContractParties: {
			"type": "object",
			"properties": map[string]any{
				"vendor": partySchema(),
				"client": partySchema(),
			},
			"required":             []any{"vendor", "client"},
			"additionalProperties": partySchema(),
		},
		FieldContractValue: fieldSchema(nullable("number"), map[string]any{
			"currency": nullable("string"),
		}),
		FieldBillingFrequency: fieldSchema(map[string]any{"enum": frequencies}, map[string]any{
			"custom_description": nullable("string"),
		}),
		FieldPaymentSchedule: fieldSchema(nullable("string"), map[string]any{
			"due_days": nullable("number"),
		}),
		FieldUsageTiers: fieldSchema(map[string]any{
			"type":  []any{"array", "null"},
			"items": tierSchema(),
		}, nil),
		FieldRenewalClause: fieldSchema(nil, map[string]any{
			"auto_renews":              nullable("boolean"),
			"renewal_period_months":    nullable("number"),
			"cancellation_notice_days": nullable("number"),
		}),
		FieldLateFee: fieldSchema(nil, map[string]any{
			"applies":           nullable("boolean"),
			"rate_percent":      nullable("number"),
			"grace_period_days": nullable("number"),
			"flat_amount":       nullable("number"),
		}),
		FieldStartDate: fieldSchema(nullable("string"), nil),
		FieldEndDate:   fieldSchema(nullable("string"), nil),
		FieldSpecialTerms: fieldSchema(map[string]any{
			"type":  []any{"array", "null"},
			"items": map[string]any{"type": "string"},
		}, nil),
	}
}

func recordSchema(fields map[string]map[string]any) map[string]any {
	props := map[string]any{FieldExtractionNotes: nullable("string")}
	required := []any{}
	for _, name := range FieldNames {
		props[name] = fields[name]
		required = append(required, name)
	}
	required = append(required, FieldExtractionNotes)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

type compiledSchemas struct {
	record *jsonschema.Schema
	fields map[string]*jsonschema.Schema
	// attrs holds the declared attribute schemas of each field, keyed by
	// field then attribute.
	attrs map[string]map[string]*jsonschema.Schema
	party *jsonschema.Schema
}

var (
	schemasOnce sync.Once
	schemas     *compiledSchemas
	schemasErr  error
)

func loadSchemas() (*compiledSchemas, error) {
	schemasOnce.Do(func() {
		schemas, schemasErr = compileSchemas()
	})
	return schemas, schemasErr
}

func compileSchemas() (*compiledSchemas, error) {
	fields := fieldSchemas()
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	resources := map[string]map[string]any{
		"billing_record.json": recordSchema(fields),
		"fields/party.json":   partySchema(),
	}
	for name, s := range fields {
		resources["fields/"+name+".json"] = s
	}
	for url, s := range resources {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", url, err)
		}
		if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", url, err)
		}
	}

	out := &compiledSchemas{
		fields: make(map[string]*jsonschema.Schema, len(fields)),
		attrs:  make(map[string]map[string]*jsonschema.Schema, len(fields)),
	}
	var err error
	if out.record, err = compiler.Compile("billing_record.json"); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	if out.party, err = compiler.Compile("fields/party.json"); err != nil {
		return nil, fmt.Errorf("compile party schema: %w", err)
	}
	for name, fs := range fields {
		if out.fields[name], err = compiler.Compile("fields/" + name + ".json"); err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		if name == FieldContractParties {
			continue
		}
		props, _ := fs["properties"].(map[string]any)
		out.attrs[name] = make(map[string]*jsonschema.Schema, len(props))
		for attr := range props {
			url := "fields/" + name + ".json#/properties/" + attr
			if out.attrs[name][attr], err = compiler.Compile(url); err != nil {
				return nil, fmt.Errorf("compile %s.%s schema: %w", name, attr, err)
			}
		}
	}
	return out, nil
}

var quotedName = regexp.MustCompile(`'([^']*)'`)

// schemaError converts a validation failure into a SchemaError rooted at prefix.
func schemaError(prefix string, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Field: rootName(prefix), Reason: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	var segments []string
	if prefix != "" {
		segments = append(segments, prefix)
	}
	for _, s := range strings.Split(strings.Trim(ve.InstanceLocation, "/"), "/") {
		if s == "" {
			continue
		}
		s = strings.ReplaceAll(s, "~1", "/")
		segments = append(segments, strings.ReplaceAll(s, "~0", "~"))
	}
	if strings.HasSuffix(ve.KeywordLocation, "/required") || strings.HasSuffix(ve.KeywordLocation, "/additionalProperties") {
		if m := quotedName.FindStringSubmatch(ve.Message); m != nil {
			segments = append(segments, m[1])
		}
	}
	return &SchemaError{Field: rootName(strings.Join(segments, ".")), Reason: ve.Message}
}

func rootName(field string) string {
	if field == "" {
		return "(root)"
	}
	return field
}

// ValidateField checks a replacement value for a whole billing field.
// Fields outside the billing schema are accepted as-is, except
// extraction_notes which must be a string or null.
func ValidateField(name string, v Value) error {
	if name == FieldExtractionNotes {
		if v.Kind() != KindString && v.Kind() != KindNull {
			return &SchemaError{Field: name, Reason: "must be a string or null"}
		}
		return nil
	}
	s, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := s.fields[name]
	if !ok {
		return nil
	}
	if err := schema.Validate(v.Interface()); err != nil {
		return schemaError(name, err)
	}
	return nil
}

// validateDeclaredAttr checks v against the schema of field.attr. Attributes
// the field does not declare are accepted as-is.
func validateDeclaredAttr(field, attr string, v Value) error {
	s, err := loadSchemas()
	if err != nil {
		return err
	}
	schema, ok := s.attrs[field][attr]
	if !ok {
		return nil
	}
	if err := schema.Validate(v.Interface()); err != nil {
		return schemaError(field+"."+attr, err)
	}
	return nil
}

func validateParty(path string, v Value) error {
	s, err := loadSchemas()
	if err != nil {
		return err
	}
	if err := s.party.Validate(v.Interface()); err != nil {
		return schemaError(path, err)
	}
	return nil
}

// ValidateConfidence rejects anything that is not a number in [0,1].
func ValidateConfidence(path string, v Value) error {
	f, ok := v.AsFloat()
	if !ok {
		return &SchemaError{Field: path, Reason: "confidence must be a number"}
	}
	if f < 0 || f > 1 {
		return &SchemaError{Field: path, Reason: fmt.Sprintf("confidence %s outside [0,1]", v.Text())}
	}
	return nil
}
