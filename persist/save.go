package persist

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"melvingraph/common"
	"melvingraph/edgelist"
	"melvingraph/graph"
)

// Save writes g's persisted state to path in the record grammar of §6:
// one pattern/pat_edge/edge/state line per record, in a deterministic order
// (patterns by handle, edges by source id then target id) so that two saves
// of an unchanged graph produce byte-identical files.
func Save(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return common.NewError(common.PersistenceFailure, "creating brain file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "state error_rate:%s learning_rate:%s pattern_count:%d\n",
		formatFloat(g.GetErrorRate()), formatFloat(g.State.LearningRate), g.GetPatternCount())

	for i := 0; i < g.Store.Len(); i++ {
		h := common.PatternHandle(i)
		p := g.Store.Get(h)
		if p == nil || !p.Active || p.Strength < 0.01 {
			continue
		}
		fmt.Fprintf(w, "pattern %s -> %s context:%s strength:%s utility:%s\n",
			encodeSequence(p.Sequence),
			encodePredictions(p.PredictedNodes, p.PredictionWeights),
			encodeContext(p.ContextVector),
			formatFloat(p.Strength),
			formatFloat(p.UtilityRate()),
		)
	}

	writeEdges(w, g.PatternEdges, "pat_edge", func(id common.NodeID) string {
		return fmt.Sprintf("%d", id)
	})
	writeEdges(w, g.Edges, "edge", func(id common.NodeID) string {
		return encodeByteChar(byte(id))
	})

	if err := w.Flush(); err != nil {
		return common.NewError(common.PersistenceFailure, "flushing brain file", err)
	}
	return nil
}

func writeEdges(w *bufio.Writer, edges *edgelist.Lists, keyword string, render func(common.NodeID) string) {
	var sources []common.NodeID
	edges.Each(func(from common.NodeID, _ []*edgelist.Edge) {
		sources = append(sources, from)
	})
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, from := range sources {
		out := edges.Out(from)
		sorted := append([]*edgelist.Edge(nil), out...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ToID < sorted[j].ToID })
		for _, e := range sorted {
			if !e.Active {
				continue
			}
			fmt.Fprintf(w, "%s %s -> %s weight:%s\n", keyword, render(from), render(e.ToID), formatFloat(float64(e.Weight)))
		}
	}
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
