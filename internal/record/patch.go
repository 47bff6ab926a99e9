package record

import "fmt"

// Patch is a single-field edit.
type Patch struct {
	Path   FieldPath
	Value  Value
	Reason *string
}

// Apply returns a copy of rec with the patch applied, along with the value
// previously held at the patched path (null if the path was empty). rec is
// never modified; on error the caller's record is untouched.
//
// Setting the value attribute of a field also marks the field as manually
// reviewed.
func Apply(rec Record, p Patch) (Value, Record, error) {
	if rec.IsZero() {
		return Null(), rec, fmt.Errorf("%w: %q", ErrUnknownField, p.Path.String())
	}
	current, ok := rec.Get(p.Path.Field)
	if !ok {
		return Null(), rec, fmt.Errorf("%w: %q", ErrUnknownField, p.Path.Field)
	}

	if !p.Path.Nested() {
		if err := ValidateField(p.Path.Field, p.Value); err != nil {
			return Null(), rec, err
		}
		updated := rec.Clone()
		updated.obj.Set(p.Path.Field, p.Value.Clone())
		return current.Clone(), updated, nil
	}

	parent, ok := current.AsObject()
	if !ok {
		return Null(), rec, fmt.Errorf("%w: %q is not an object", ErrUnknownField, p.Path.Field)
	}
	if err := validateAttr(p.Path, p.Value); err != nil {
		return Null(), rec, err
	}

	old, _ := parent.Get(p.Path.Attr)
	updated := rec.Clone()
	fieldVal, _ := updated.obj.Get(p.Path.Field)
	field, _ := fieldVal.AsObject()
	field.Set(p.Path.Attr, p.Value.Clone())
	if p.Path.Attr == AttrValue {
		field.Set(AttrManuallyReviewed, Bool(true))
	}
	return old.Clone(), updated, nil
}

func validateAttr(p FieldPath, v Value) error {
	switch {
	case p.Attr == AttrConfidence:
		return ValidateConfidence(p.String(), v)
	case p.Field == FieldContractParties:
		if reservedAttr(p.Attr) {
			return nil
		}
		return validateParty(p.String(), v)
	}
	return validateDeclaredAttr(p.Field, p.Attr, v)
}

func reservedAttr(name string) bool {
	switch name {
	case AttrValue, AttrConfidence, AttrSourceText, AttrManuallyReviewed:
		return true
	}
	return false
}
