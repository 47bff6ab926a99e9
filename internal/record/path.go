package record

import (
	"fmt"
	"strings"
)

// PathSeparator separates the field and attribute of a FieldPath.
const PathSeparator = "."

// FieldPath addresses a top-level field or one attribute of it. Attr is
// empty for a top-level path.
type FieldPath struct {
	Field string
	Attr  string
}

// ParseFieldPath parses "field" or "field.attr".
func ParseFieldPath(s string) (FieldPath, error) {
	parts := strings.Split(s, PathSeparator)
	if len(parts) > 2 {
		return FieldPath{}, fmt.Errorf("%w: %q", ErrUnsupportedPathDepth, s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return FieldPath{}, fmt.Errorf("%w: %q", ErrUnknownField, s)
		}
	}
	fp := FieldPath{Field: parts[0]}
	if len(parts) == 2 {
		fp.Attr = parts[1]
	}
	return fp, nil
}

// Nested reports whether the path addresses an attribute.
func (p FieldPath) Nested() bool { return p.Attr != "" }

func (p FieldPath) String() string {
	if !p.Nested() {
		return p.Field
	}
	return p.Field + PathSeparator + p.Attr
}
