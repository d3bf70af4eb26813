package octree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	queryTypeLabel = "query_type"
)

var (
	visibilityPassLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "octree_visibility_pass_latency",
		Help:    "The time to find the visible nodes for a camera.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	visibilitySubmittedNodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "octree_visibility_submitted_nodes",
		Help: "The number of nodes submitted to render collectors.",
	})

	visibilityCulledOctants = promauto.NewCounter(prometheus.CounterOpts{
		Name: "octree_visibility_culled_octants",
		Help: "The number of octants culled by visibility passes.",
	})

	nodeRehomes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "octree_node_rehomes",
		Help: "The number of nodes moved to another octant after an update.",
	})

	nodeOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "octree_node_overflows",
		Help: "The number of nodes stored at the root because they do not fit the world bounds.",
	})

	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_queries",
		Help: "The number of spatial queries.",
	}, []string{queryTypeLabel})

	queryReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octree_query_reports",
		Help: "The number of elements reported by spatial queries.",
	}, []string{queryTypeLabel})
)

func instrumentVisibilityPass(start time.Time, stats VisibilityStats) {
	visibilityPassLatency.Observe(time.Since(start).Seconds())
	visibilitySubmittedNodes.Add(float64(stats.NodesSubmitted))
	visibilityCulledOctants.Add(float64(stats.OctantsCulled))
}

func instrumentRehome() {
	nodeRehomes.Inc()
}

func instrumentOverflow() {
	nodeOverflows.Inc()
}

func instrumentQuery(queryType string) {
	queries.
		With(prometheus.Labels{queryTypeLabel: queryType}).
		Inc()
}

func instrumentQueryReport(queryType string) {
	queryReports.
		With(prometheus.Labels{queryTypeLabel: queryType}).
		Inc()
}
