package store

import (
	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/tokencost"
)

func nodeCost(n persistence.NodeDoc) int {
	return tokencost.NodeCost(n.Gist, n.Notes)
}

func graphCost(activeNodeCosts []int, edgeCount int) int {
	return tokencost.GraphCost(activeNodeCosts, edgeCount)
}
