// Package persist implements the text-line persisted-state format of §6:
// save_brain/load_brain. Only the fields the grammar names are persisted
// (patterns, pattern-to-pattern edges, node-to-node edges, and a handful of
// SystemState scalars); everything else initializes to defaults on load, per
// the format's documented scope.
package persist

import (
	"fmt"
	"strconv"
	"strings"

	"melvingraph/common"
)

// encodeSequence renders a pattern sequence as a double-quoted Go string
// literal, one character per symbol: Wildcard becomes '_', byte symbols
// become their literal character. A real byte value of '_' (0x5F) is
// indistinguishable from a wildcard on reload — an accepted ambiguity
// carried over from the grammar given in §6, not introduced here.
func encodeSequence(seq []common.NodeID) string {
	var b strings.Builder
	for _, s := range seq {
		if s == common.Wildcard {
			b.WriteByte('_')
		} else if s.IsByte() {
			b.WriteByte(byte(s))
		}
	}
	return strconv.Quote(b.String())
}

func decodeSequence(quoted string) ([]common.NodeID, error) {
	s, err := strconv.Unquote(quoted)
	if err != nil {
		return nil, err
	}
	seq := make([]common.NodeID, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			seq = append(seq, common.Wildcard)
		} else {
			seq = append(seq, common.NodeID(s[i]))
		}
	}
	return seq, nil
}

// encodePredictions renders the predicted-node list, filtering to those at
// or above the 0.2 confidence the round-trip property guarantees (§8 #7).
// END_MARKER is encoded as '$', under the same single-character-per-symbol
// convention and the same accepted ambiguity as the wildcard marker.
func encodePredictions(nodes []common.NodeID, weights []float64) string {
	var b strings.Builder
	for i, n := range nodes {
		w := 0.0
		if i < len(weights) {
			w = weights[i]
		}
		if w < 0.2 {
			continue
		}
		if n == common.EndMarker {
			b.WriteByte('$')
		} else if n.IsByte() {
			b.WriteByte(byte(n))
		}
	}
	return strconv.Quote(b.String())
}

func decodePredictions(quoted string) ([]common.NodeID, error) {
	s, err := strconv.Unquote(quoted)
	if err != nil {
		return nil, err
	}
	out := make([]common.NodeID, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			out = append(out, common.EndMarker)
		} else {
			out = append(out, common.NodeID(s[i]))
		}
	}
	return out, nil
}

func encodeContext(ctx common.ContextVector) string {
	parts := make([]string, len(ctx))
	for i, c := range ctx {
		parts[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func decodeContext(s string) (common.ContextVector, error) {
	var ctx common.ContextVector
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return ctx, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != len(ctx) {
		return ctx, fmt.Errorf("expected %d context components, got %d", len(ctx), len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ctx, err
		}
		ctx[i] = v
	}
	return ctx, nil
}

// encodeByteChar renders a single byte (the full 0-255 range, not just a
// Unicode rune) as a single-quoted literal. strconv.Quote operates on bytes
// rather than validated runes, so it already escapes every non-printable or
// non-ASCII byte correctly; only the delimiter needs swapping from " to '.
func encodeByteChar(b byte) string {
	q := strconv.Quote(string([]byte{b}))
	inner := strings.ReplaceAll(q[1:len(q)-1], "'", "\\'")
	return "'" + inner + "'"
}

func decodeByteChar(quoted string) (byte, error) {
	if len(quoted) < 2 || quoted[0] != '\'' || quoted[len(quoted)-1] != '\'' {
		return 0, fmt.Errorf("not a single-quoted literal: %q", quoted)
	}
	inner := strings.ReplaceAll(quoted[1:len(quoted)-1], "\\'", "'")
	s, err := strconv.Unquote(`"` + inner + `"`)
	if err != nil {
		return 0, err
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("expected single character, got %q", s)
	}
	return s[0], nil
}
