package persist

import (
	"os"
	"testing"

	"melvingraph/graph"
)

func newGraphForTest(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.Create(graph.DefaultOptions())
	g.SetInputPort(1)
	g.SetOutputPort(2)
	return g
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
