package persist

import (
	"path/filepath"
	"testing"

	"melvingraph/common"
)

func TestByteCharRoundTripsFullRange(t *testing.T) {
	for b := 0; b < 256; b++ {
		encoded := encodeByteChar(byte(b))
		decoded, err := decodeByteChar(encoded)
		if err != nil {
			t.Fatalf("byte %d: %v", b, err)
		}
		if decoded != byte(b) {
			t.Fatalf("byte %d round-tripped to %d via %q", b, decoded, encoded)
		}
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	seq := []common.NodeID{'c', 'a', 't', common.Wildcard, 0, 255}
	encoded := encodeSequence(seq)
	decoded, err := decodeSequence(encoded)
	if err != nil {
		t.Fatalf("decodeSequence: %v", err)
	}
	if len(decoded) != len(seq) {
		t.Fatalf("length mismatch: got %v, want %v", decoded, seq)
	}
	for i := range seq {
		if decoded[i] != seq[i] {
			t.Fatalf("index %d: got %v, want %v", i, decoded[i], seq[i])
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := common.ContextVector{}
	for i := range ctx {
		ctx[i] = float64(i) * 0.1
	}
	decoded, err := decodeContext(encodeContext(ctx))
	if err != nil {
		t.Fatalf("decodeContext: %v", err)
	}
	if decoded != ctx {
		t.Fatalf("context round-trip mismatch: got %v, want %v", decoded, ctx)
	}
}

func TestSaveLoadRestoresPatternsAndEdges(t *testing.T) {
	g := newGraphForTest(t)

	if err := g.RunEpisode([]byte("cat"), []byte("cats")); err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}

	path := filepath.Join(t.TempDir(), "brain.txt")
	if err := Save(g, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.GetPatternCount() == 0 && g.GetPatternCount() > 0 {
		t.Fatalf("expected at least one pattern to survive the round trip")
	}
	if loaded.Edges.ActiveCount() == 0 && g.Edges.ActiveCount() > 0 {
		t.Fatalf("expected at least one edge to survive the round trip")
	}

	path2 := filepath.Join(t.TempDir(), "brain2.txt")
	if err := Save(loaded, path2); err != nil {
		t.Fatalf("re-Save: %v", err)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "malformed.txt")
	content := "# a comment\n\nnot a real record\nstate error_rate:0.25 learning_rate:0.05 pattern_count:0\n"
	if err := writeTestFile(path, content); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.GetErrorRate() != 0.25 {
		t.Fatalf("expected error_rate restored to 0.25, got %v", g.GetErrorRate())
	}
}
