package road

import "strings"

// Fixed triad table over the outcome alphabet; index+1 is the pattern ID.
var baseTriads = [8]string{"BBB", "PPP", "BPP", "PBB", "PBP", "BPB", "PPB", "BBP"}

// Classifier maps a 3-letter window over a two-letter alphabet to its pattern ID.
type Classifier struct {
	first  byte
	second byte

	patterns [8]string
	ids      map[string]PatternID
}

var (
	OutcomeTriads = NewClassifier('B', 'P')
	BetTriads     = NewClassifier('W', 'L')
)

// NewClassifier builds the triad table for the alphabet {first, second},
// where first takes the place of B and second the place of P.
func NewClassifier(first, second byte) *Classifier {
	c := &Classifier{
		first:  first,
		second: second,
		ids:    make(map[string]PatternID, len(baseTriads)),
	}
	for i, base := range baseTriads {
		p := c.translate(base)
		c.patterns[i] = p
		c.ids[p] = PatternID(i + 1)
	}
	return c
}

func (c *Classifier) translate(base string) string {
	out := []byte(base)
	for i, b := range out {
		if b == 'B' {
			out[i] = c.first
		} else {
			out[i] = c.second
		}
	}
	return string(out)
}

func (c *Classifier) Letters() (byte, byte) { return c.first, c.second }

// Classify returns the pattern ID of window, or false when window is not a triad
// of this alphabet.
func (c *Classifier) Classify(window string) (PatternID, bool) {
	id, ok := c.ids[window]
	return id, ok
}

// Pattern returns the triad string for id.
func (c *Classifier) Pattern(id PatternID) (string, bool) {
	if id < 1 || int(id) > len(c.patterns) {
		return "", false
	}
	return c.patterns[id-1], true
}

// Patterns lists all 8 triads ordered by pattern ID.
func (c *Classifier) Patterns() []string {
	out := make([]string, len(c.patterns))
	copy(out, c.patterns[:])
	return out
}

// Antonym flips every letter of pattern. Letters outside the alphabet are kept.
func (c *Classifier) Antonym(pattern string) string {
	var sb strings.Builder
	sb.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case c.first:
			sb.WriteByte(c.second)
		case c.second:
			sb.WriteByte(c.first)
		default:
			sb.WriteByte(pattern[i])
		}
	}
	return sb.String()
}
