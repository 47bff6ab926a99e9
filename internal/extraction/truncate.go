package extraction

// OmissionMarker replaces the middle of a contract that is too long to send whole.
const OmissionMarker = "\n...[middle section omitted]...\n"

// TruncationPolicy bounds the amount of contract text sent to a provider.
// Lengths are in runes.
type TruncationPolicy struct {
	MaxChars  int
	HeadChars int
	TailChars int
}

// DefaultTruncationPolicy keeps the first 12000 and last 2000 characters of
// contracts longer than 14000 characters.
var DefaultTruncationPolicy = TruncationPolicy{MaxChars: 14000, HeadChars: 12000, TailChars: 2000}

// Apply returns text unchanged when it fits, otherwise the head and tail
// windows joined by OmissionMarker. The boolean reports whether text was cut.
func (p TruncationPolicy) Apply(text string) (string, bool) {
	runes := []rune(text)
	if p.MaxChars <= 0 || len(runes) <= p.MaxChars {
		return text, false
	}
	head := min(p.HeadChars, len(runes))
	tail := min(p.TailChars, len(runes)-head)
	return string(runes[:head]) + OmissionMarker + string(runes[len(runes)-tail:]), true
}
