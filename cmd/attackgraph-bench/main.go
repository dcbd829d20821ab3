// Command attackgraph-bench runs chain/star/mesh topologies of
// increasing size through the engine and reports the incremental vs.
// from-scratch speedup for each, one summary block per topology.
package main

import (
	"context"
	"log"
	"os"

	"github.com/rawblock/attackgraph-engine/internal/bench"
)

func main() {
	log.Println("Starting attack-graph benchmark runner...")

	sizes := []int{10, 50, 100, 500, 1000}
	var topologies []bench.Topology
	for _, n := range sizes {
		topologies = append(topologies, bench.Chain(n))
	}
	for _, n := range sizes {
		topologies = append(topologies, bench.Star(n))
	}
	topologies = append(topologies, bench.Mesh(10, 10), bench.Mesh(20, 20))

	r := bench.NewRunner()
	results := r.Run(context.Background(), topologies)

	for _, res := range results {
		os.Stdout.WriteString(res.Summary())
	}
	log.Printf("benchmark run complete: %d topologies", len(results))
}
