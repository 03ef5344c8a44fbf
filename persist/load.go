package persist

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"melvingraph/common"
	"melvingraph/graph"
)

// Load reads a brain file written by Save and returns a freshly created Graph
// populated from it. Unknown or malformed lines are skipped rather than
// treated as fatal, matching the tolerant-reload behavior implied by the
// round-trip property (§8 #7): everything persist didn't write (activation,
// firing memoization, hierarchy, associations, rule tables, learned scalars)
// starts at Create's defaults.
func Load(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewError(common.PersistenceFailure, "opening brain file", err)
	}
	defer f.Close()

	g := graph.Create(graph.DefaultOptions())

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "state":
			loadState(g, tokens)
		case "pattern":
			loadPattern(g, tokens)
		case "pat_edge":
			loadPatEdge(g, tokens)
		case "edge":
			loadEdge(g, tokens)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, common.NewError(common.PersistenceFailure, "reading brain file", err)
	}
	return g, nil
}

func loadState(g *graph.Graph, tokens []string) {
	for _, t := range tokens[1:] {
		if v, ok := field(t, "error_rate:"); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				g.State.ErrorRate = f
			}
		}
		if v, ok := field(t, "learning_rate:"); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				g.State.LearningRate = f
			}
		}
	}
}

// loadPattern expects: pattern "<seq>" -> "<pred>" context:[...] strength:<f> utility:<f>
func loadPattern(g *graph.Graph, tokens []string) {
	if len(tokens) < 6 || tokens[2] != "->" {
		return
	}
	seq, err := decodeSequence(tokens[1])
	if err != nil {
		return
	}
	pred, err := decodePredictions(tokens[3])
	if err != nil {
		return
	}
	var ctx common.ContextVector
	var strength, utility float64
	for _, t := range tokens[4:] {
		if v, ok := field(t, "context:"); ok {
			if c, err := decodeContext(v); err == nil {
				ctx = c
			}
		}
		if v, ok := field(t, "strength:"); ok {
			strength, _ = strconv.ParseFloat(v, 64)
		}
		if v, ok := field(t, "utility:"); ok {
			utility, _ = strconv.ParseFloat(v, 64)
		}
	}

	handle := g.Store.Create(seq, ctx, 0)
	p := g.Store.Get(handle)
	p.PredictedNodes = pred
	p.PredictionWeights = make([]float64, len(pred))
	for i := range p.PredictionWeights {
		p.PredictionWeights[i] = 1.0
	}
	p.Strength = strength
	// Approximate the persisted utility with a fixed attempt count; only the
	// ratio round-trips, not the exact counters (those aren't part of the
	// persisted grammar).
	p.PredictionAttempts = 100
	p.PredictionSuccesses = int64(utility * 100)
	g.Store.RebuildPredictingIndex(handle)
}

// loadPatEdge expects: pat_edge <from> -> <to> weight:<f>
func loadPatEdge(g *graph.Graph, tokens []string) {
	if len(tokens) < 5 || tokens[2] != "->" {
		return
	}
	from, err1 := strconv.Atoi(tokens[1])
	to, err2 := strconv.Atoi(tokens[3])
	if err1 != nil || err2 != nil {
		return
	}
	weight, ok := weightField(tokens[4:])
	if !ok {
		return
	}
	e := g.PatternEdges.CreateOrStrengthen(common.NodeID(from), common.NodeID(to), 0, true)
	if e != nil {
		e.Weight = common.Weight(weight)
	}
}

// loadEdge expects: edge '<from>' -> '<to>' weight:<f>
func loadEdge(g *graph.Graph, tokens []string) {
	if len(tokens) < 5 || tokens[2] != "->" {
		return
	}
	from, err1 := decodeByteChar(tokens[1])
	to, err2 := decodeByteChar(tokens[3])
	if err1 != nil || err2 != nil {
		return
	}
	weight, ok := weightField(tokens[4:])
	if !ok {
		return
	}
	e := g.Edges.CreateOrStrengthen(common.NodeID(from), common.NodeID(to), 0, false)
	if e != nil {
		e.Weight = common.Weight(weight)
	}
}

func weightField(tokens []string) (float64, bool) {
	for _, t := range tokens {
		if v, ok := field(t, "weight:"); ok {
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		}
	}
	return 0, false
}

func field(token, prefix string) (string, bool) {
	if strings.HasPrefix(token, prefix) {
		return strings.TrimPrefix(token, prefix), true
	}
	return "", false
}

// tokenize splits line on whitespace, treating a matched pair of single or
// double quotes (with backslash-escaping inside) as one token regardless of
// embedded whitespace.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	var inQuote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		if inQuote != 0 {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
