package textextract

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// tjSpaceThreshold is the TJ displacement, in thousandths of text space,
// beyond which a gap is treated as a word break.
const tjSpaceThreshold = -200

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokArrayStart
	tokArrayEnd
	tokOperator
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// ContentText recovers the text shown by a PDF page content stream. Strings
// are decoded as PDFDocEncoding, or UTF-16BE when they carry a byte order
// mark. Line breaks follow text positioning operators.
func ContentText(stream []byte) string {
	var (
		w       lineWriter
		operand []token
		inArray bool
		array   []token
	)

	lx := lexer{src: stream}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			inArray, array = true, array[:0]
		case tokArrayEnd:
			inArray = false
		case tokOperator:
			applyOperator(&w, tok.text, operand, array)
			operand, array = operand[:0], array[:0]
		default:
			if inArray {
				array = append(array, tok)
			} else {
				operand = append(operand, tok)
			}
		}
	}
	w.newline()
	return strings.TrimRight(w.b.String(), "\n")
}

func applyOperator(w *lineWriter, op string, operand, array []token) {
	switch op {
	case "Tj":
		if s, ok := lastString(operand); ok {
			w.write(s)
		}
	case "'", "\"":
		w.newline()
		if s, ok := lastString(operand); ok {
			w.write(s)
		}
	case "TJ":
		for _, t := range array {
			switch t.kind {
			case tokString:
				w.write(t.text)
			case tokNumber:
				if t.num < tjSpaceThreshold {
					w.space()
				}
			}
		}
	case "Td", "TD":
		if len(operand) >= 2 && operand[len(operand)-1].kind == tokNumber {
			if operand[len(operand)-1].num != 0 {
				w.newline()
			} else if operand[len(operand)-2].num > 0 {
				w.space()
			}
		}
	case "T*", "ET", "Tm":
		w.newline()
	}
}

func lastString(ts []token) (string, bool) {
	if len(ts) == 0 || ts[len(ts)-1].kind != tokString {
		return "", false
	}
	return ts[len(ts)-1].text, true
}

type lineWriter struct {
	b    strings.Builder
	line strings.Builder
}

func (w *lineWriter) write(s string) { w.line.WriteString(s) }

func (w *lineWriter) space() {
	if s := w.line.String(); s != "" && !strings.HasSuffix(s, " ") {
		w.line.WriteByte(' ')
	}
}

func (w *lineWriter) newline() {
	s := strings.TrimSpace(w.line.String())
	w.line.Reset()
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

type lexer struct {
	src []byte
	pos int
}

func isWhite(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.pos++
			return token{kind: tokString, text: decodePDFString(l.literal())}, true
		case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
			l.pos += 2
		case c == '<':
			l.pos++
			return token{kind: tokString, text: decodePDFString(l.hex())}, true
		case c == '[':
			l.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			l.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			l.pos++
			return token{kind: tokName, text: l.word()}, true
		case c == '{' || c == '}' || c == ')' || c == '>':
			l.pos++
		default:
			w := l.word()
			if w == "" {
				l.pos++
				continue
			}
			if n, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokNumber, num: n}, true
			}
			if w == "BI" {
				l.skipInlineImage()
				continue
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && !isWhite(l.src[l.pos]) && !isDelim(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

// literal reads a parenthesized string body; the opening paren is consumed.
func (l *lexer) literal() []byte {
	var out []byte
	depth := 1
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			out = l.escape(out)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) escape(out []byte) []byte {
	if l.pos >= len(l.src) {
		return out
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if l.peek(0) == '\n' {
			l.pos++
		}
		return out
	case '\n':
		return out
	}
	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; i++ {
			v = v*8 + int(l.src[l.pos]-'0')
			l.pos++
		}
		return append(out, byte(v))
	}
	return append(out, c)
}

// hex reads a hex string body; the opening angle bracket is consumed.
func (l *lexer) hex() []byte {
	var digits []byte
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		if c := l.src[l.pos]; !isWhite(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage advances past binary inline image data up to EI.
func (l *lexer) skipInlineImage() {
	for l.pos+2 < len(l.src) {
		if isWhite(l.src[l.pos]) && l.src[l.pos+1] == 'E' && l.src[l.pos+2] == 'I' &&
			(l.pos+3 >= len(l.src) || isWhite(l.src[l.pos+3])) {
			l.pos += 3
			return
		}
		l.pos++
	}
	l.pos = len(l.src)
}

func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte(' ')
		case c < 0x20:
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}
