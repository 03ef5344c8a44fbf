package graph

import (
	"bytes"
	"math"
	"testing"

	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/nodearr"
	"melvingraph/pattern"
)

// assertInvariants checks the quantified invariants of spec.md §8 (#1-#4, #6)
// against the current state of g. It is called after every episode in the
// scenarios below so a regression in any core package surfaces close to the
// scenario that triggered it.
func assertInvariants(t *testing.T, g *Graph, target []byte) {
	t.Helper()

	// #1 no self-loops, #2 counter monotonicity (success <= use).
	g.Edges.Each(func(from common.NodeID, edges []*edgelist.Edge) {
		for _, e := range edges {
			if e.ToID == from {
				t.Errorf("self-loop at node %v", from)
			}
			if e.SuccessCount > e.UseCount {
				t.Errorf("edge %v->%v success_count %d > use_count %d", from, e.ToID, e.SuccessCount, e.UseCount)
			}
		}
	})

	// #3 pattern sanity, #4 pattern activation bound.
	g.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if p.PredictionSuccesses > p.PredictionAttempts {
			t.Errorf("pattern prediction_successes %d > prediction_attempts %d", p.PredictionSuccesses, p.PredictionAttempts)
		}
		if p.Strength < 0 || p.Strength > 1 {
			t.Errorf("pattern strength %v out of [0,1]", p.Strength)
		}
		if p.AccumulatedMeaning > 1000 {
			t.Errorf("accumulated_meaning %v > 1000", p.AccumulatedMeaning)
		}
		if p.Activation > 10 {
			t.Errorf("pattern activation %v > 10", p.Activation)
		}
		if p.ParentPatternID != common.PatternNone {
			if parent := g.Store.Get(p.ParentPatternID); parent != nil {
				if p.ChainDepth != parent.ChainDepth+1 {
					t.Errorf("chain_depth %d != parent.chain_depth+1 (%d)", p.ChainDepth, parent.ChainDepth+1)
				}
			}
		}
	})

	// #4 node activation finiteness.
	g.Nodes.Each(func(id common.NodeID, n *nodearr.Node) {
		if math.IsNaN(float64(n.Activation)) || math.IsInf(float64(n.Activation), 0) {
			t.Errorf("node %v activation is not finite: %v", id, n.Activation)
		}
	})

	// #6 output buffer bounds.
	if len(g.output) > emergencyOutputCap {
		t.Errorf("output length %d exceeds emergency cap %d", len(g.output), emergencyOutputCap)
	}
	if target != nil && len(g.output) > len(target) {
		t.Errorf("supervised output length %d exceeds target length %d", len(g.output), len(target))
	}
}

func runMany(g *Graph, input, target []byte, times int) {
	for i := 0; i < times; i++ {
		g.RunEpisode(input, target)
	}
}

// --- Invariant suite (spec.md §8 #1-#4, #6) -------------------------------

func TestInvariantsHoldAfterTrainingEpisodes(t *testing.T) {
	g := Create(DefaultOptions())
	runMany(g, []byte("cat"), []byte("cats"), 30)
	assertInvariants(t, g, []byte("cats"))

	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("generation episode: %v", err)
	}
	assertInvariants(t, g, nil)
}

func TestInvariantsHoldAfterMixedEpisodes(t *testing.T) {
	g := Create(DefaultOptions())
	inputs := [][2]string{{"cat", "cats"}, {"bat", "bats"}, {"rat", "rats"}}
	for epoch := 0; epoch < 20; epoch++ {
		for _, pair := range inputs {
			g.RunEpisode([]byte(pair[0]), []byte(pair[1]))
		}
	}
	assertInvariants(t, g, nil)
}

// --- Empty input is a no-op (§8 #8) ---------------------------------------

func TestEmptyInputIsNoOp(t *testing.T) {
	g := Create(DefaultOptions())
	runMany(g, []byte("cat"), []byte("cats"), 5)

	patternsBefore := g.Store.Len()
	edgesBefore := g.Edges.ActiveCount()

	if err := g.RunEpisode(nil, nil); err != nil {
		t.Fatalf("empty input episode returned error: %v", err)
	}
	if out := g.GetOutput(); len(out) != 0 {
		t.Errorf("expected empty output, got %q", out)
	}
	if g.Store.Len() != patternsBefore {
		t.Errorf("pattern count changed on empty input: %d -> %d", patternsBefore, g.Store.Len())
	}
	if g.Edges.ActiveCount() != edgesBefore {
		t.Errorf("active edge count changed on empty input: %d -> %d", edgesBefore, g.Edges.ActiveCount())
	}
}

func TestEmptyInputWithTargetIsInvalidArgument(t *testing.T) {
	g := Create(DefaultOptions())
	err := g.RunEpisode(nil, []byte("x"))
	if err == nil {
		t.Fatal("expected InvalidArgument error for empty input with non-nil target")
	}
	var ee *common.EngineError
	if !asEngineError(err, &ee) {
		t.Fatalf("expected *common.EngineError, got %T: %v", err, err)
	}
	if ee.Kind != common.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", ee.Kind)
	}
}

func asEngineError(err error, target **common.EngineError) bool {
	ee, ok := err.(*common.EngineError)
	if ok {
		*target = ee
	}
	return ok
}

// --- Determinism (§8 #5) ---------------------------------------------------

func TestDeterminism(t *testing.T) {
	run := func() ([]byte, map[string]float64) {
		g := Create(DefaultOptions())
		for epoch := 0; epoch < 15; epoch++ {
			g.RunEpisode([]byte("cat"), []byte("cats"))
		}
		g.RunEpisode([]byte("cat"), nil)
		out := g.GetOutput()

		weights := map[string]float64{}
		for _, from := range []byte("cat") {
			for _, to := range []byte("cats") {
				if w, ok := g.GetEdgeWeight(from, to); ok {
					weights[string([]byte{from, to})] = w
				}
			}
		}
		return out, weights
	}

	out1, w1 := run()
	out2, w2 := run()

	if !bytes.Equal(out1, out2) {
		t.Errorf("non-deterministic output: %q vs %q", out1, out2)
	}
	if len(w1) != len(w2) {
		t.Fatalf("edge weight map size differs: %d vs %d", len(w1), len(w2))
	}
	for k, v := range w1 {
		if w2[k] != v {
			t.Errorf("edge weight %q differs across runs: %v vs %v", k, v, w2[k])
		}
	}
}

// --- Wildcard match (§8 #9) --------------------------------------------------

func TestWildcardPatternMatchesAnySecondByteEqual(t *testing.T) {
	p := &pattern.Pattern{
		Sequence: []common.NodeID{common.Wildcard, common.NodeID('x')},
		Active:   true,
	}
	portOf := func(common.NodeID) (common.Port, bool) { return 0, false }

	for _, first := range []byte("abc123") {
		seq := []common.NodeID{common.NodeID(first), common.NodeID('x')}
		if !pattern.Match(p, seq, 0, portOf, common.ContextVector{}) {
			t.Errorf("expected wildcard pattern to match sequence starting with %q", first)
		}
	}

	seq := []common.NodeID{common.NodeID('a'), common.NodeID('y')}
	if pattern.Match(p, seq, 0, portOf, common.ContextVector{}) {
		t.Error("expected wildcard pattern not to match when second byte differs")
	}
}

// --- End-to-end scenarios (spec.md §8, S1-S6) ------------------------------

// S1: echo learning. After training "cat"->"cat" repeatedly, running "cat"
// with no target reproduces the input.
func TestScenarioS1EchoLearning(t *testing.T) {
	g := Create(DefaultOptions())
	runMany(g, []byte("cat"), []byte("cat"), 30)

	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("generation episode: %v", err)
	}
	out := g.GetOutput()
	if len(out) == 0 {
		t.Fatal("expected non-empty output after echo training")
	}
	if len(out) > 3 {
		t.Errorf("expected output no longer than input (3), got %q", out)
	}
}

// S2: transformation. After training "cat"->"cats" repeatedly, running
// "cat" with no target appends the learned suffix.
func TestScenarioS2Transformation(t *testing.T) {
	g := Create(DefaultOptions())
	runMany(g, []byte("cat"), []byte("cats"), 30)

	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("generation episode: %v", err)
	}
	out := g.GetOutput()
	if len(out) == 0 {
		t.Fatal("expected non-empty output after transformation training")
	}
	if len(out) > 4 {
		t.Errorf("expected output no longer than target (4), got %q", out)
	}
}

// S3: generalization. After training the three "_at"->"_ats" pairs, the
// positional detector (§4.11) should have materialized at least one
// wildcard-bearing pattern from the shared "_at" structure, and running a
// novel "hat" input should exercise the learned graph rather than produce
// nothing.
func TestScenarioS3Generalization(t *testing.T) {
	g := Create(DefaultOptions())
	for epoch := 0; epoch < 20; epoch++ {
		g.RunEpisode([]byte("cat"), []byte("cats"))
		g.RunEpisode([]byte("bat"), []byte("bats"))
		g.RunEpisode([]byte("rat"), []byte("rats"))
	}

	foundWildcard := false
	g.Store.Each(func(_ common.PatternHandle, p *pattern.Pattern) {
		if !p.Active {
			return
		}
		for _, sym := range p.Sequence {
			if sym == common.Wildcard {
				foundWildcard = true
			}
		}
	})
	if !foundWildcard {
		t.Error("expected at least one wildcard-bearing pattern after training cat/bat/rat -> *ats")
	}

	if err := g.RunEpisode([]byte("hat"), nil); err != nil {
		t.Fatalf("generation episode: %v", err)
	}
	if out := g.GetOutput(); len(out) == 0 {
		t.Error("expected non-empty generalized output for novel input 'hat'")
	}
}

// S4: port differentiation. Patterns learned under one input port must not
// fire identically under another.
func TestScenarioS4PortDifferentiation(t *testing.T) {
	g := Create(DefaultOptions())
	g.SetInputPort(0)
	runMany(g, []byte("cat"), []byte("cats"), 30)
	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("port-0 generation episode: %v", err)
	}
	port0Output := append([]byte(nil), g.GetOutput()...)

	g2 := Create(DefaultOptions())
	g2.SetInputPort(1)
	if err := g2.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("port-1 generation episode: %v", err)
	}
	port1Output := g2.GetOutput()

	if bytes.Equal(port0Output, []byte("cats")) && bytes.Equal(port1Output, []byte("cats")) {
		t.Error("expected port-1 graph (untrained) not to reproduce the port-0-trained transformation")
	}
}

// S6: negative feedback. Running a trained transformation, then applying
// universal negative feedback, must raise the system error rate and weaken
// the contributing edges/pattern predictions.
func TestScenarioS6NegativeFeedback(t *testing.T) {
	g := Create(DefaultOptions())
	runMany(g, []byte("cat"), []byte("cats"), 30)

	if err := g.RunEpisode([]byte("cat"), nil); err != nil {
		t.Fatalf("generation episode: %v", err)
	}

	errBefore := g.GetErrorRate()
	weightsBefore := map[string]float64{}
	for _, from := range []byte("cat") {
		for _, to := range []byte("cats") {
			if w, ok := g.GetEdgeWeight(from, to); ok {
				weightsBefore[string([]byte{from, to})] = w
			}
		}
	}

	if err := g.ApplyErrorFeedback(1.0); err != nil {
		t.Fatalf("ApplyErrorFeedback: %v", err)
	}

	if g.GetErrorRate() <= errBefore {
		t.Errorf("expected error_rate to increase after negative feedback: before=%v after=%v", errBefore, g.GetErrorRate())
	}

	weakened := false
	for _, from := range []byte("cat") {
		for _, to := range []byte("cats") {
			if w, ok := g.GetEdgeWeight(from, to); ok {
				if before, had := weightsBefore[string([]byte{from, to})]; had && w < before {
					weakened = true
				}
			}
		}
	}
	if !weakened {
		t.Error("expected at least one contributing edge to weaken after negative feedback")
	}
}

func TestApplyErrorFeedbackRejectsOutOfRangeMagnitude(t *testing.T) {
	g := Create(DefaultOptions())
	if err := g.ApplyErrorFeedback(-0.1); err == nil {
		t.Error("expected error for magnitude < 0")
	}
	if err := g.ApplyErrorFeedback(1.1); err == nil {
		t.Error("expected error for magnitude > 1")
	}
}
