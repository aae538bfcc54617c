// Package metrics exposes the Prometheus counters carbon's CLI registers
// when a caller asks for them ("carbon stat --metrics-addr"): groups
// visited, bytes read off an opened archive, and sort comparisons spent
// building one. None of internal/archive, internal/cim, or
// internal/visitor import this package directly — the CLI wires a
// Recorder in by passing counting callbacks/closures of its own, so the
// traversal and sort hot paths never pay for an import they don't need.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/carbonarchive/carbon/internal/carbonlog"
)

// Recorder holds the counters one "carbon stat" invocation reports.
type Recorder struct {
	registry *prometheus.Registry

	groupsVisited    prometheus.Counter
	bytesRead        prometheus.Counter
	sortComparisons  prometheus.Counter
	objectsVisited   prometheus.Counter
	commandDurations *prometheus.HistogramVec
}

// New creates a Recorder with its own registry, so multiple CLI
// invocations in the same process (tests, "carbon watch" re-runs) never
// collide on prometheus' default global registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return &Recorder{
		registry: reg,
		groupsVisited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "carbon_groups_visited_total",
			Help: "Property groups (primitive, array, or column-group) visited by a traversal.",
		}),
		bytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "carbon_bytes_read_total",
			Help: "Bytes read from opened archive byte blocks.",
		}),
		sortComparisons: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "carbon_sort_comparisons_total",
			Help: "Comparator invocations spent sorting ingested documents into read-optimized order.",
		}),
		objectsVisited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "carbon_objects_visited_total",
			Help: "Objects (root or nested) visited by a traversal.",
		}),
		commandDurations: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbon_command_duration_seconds",
			Help:    "Wall-clock duration of a carbon subcommand invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
	}
}

func (r *Recorder) AddGroupsVisited(n int)   { r.groupsVisited.Add(float64(n)) }
func (r *Recorder) IncGroupsVisited()        { r.groupsVisited.Inc() }
func (r *Recorder) IncObjectsVisited()       { r.objectsVisited.Inc() }
func (r *Recorder) AddBytesRead(n int)       { r.bytesRead.Add(float64(n)) }
func (r *Recorder) AddSortComparisons(n int) { r.sortComparisons.Add(float64(n)) }

// ObserveCommandDuration records how long one subcommand took, in seconds.
func (r *Recorder) ObserveCommandDuration(command string, seconds float64) {
	r.commandDurations.WithLabelValues(command).Observe(seconds)
}

// Handler exposes the Recorder's registry in the Prometheus text exposition
// format, for "carbon stat --metrics-addr" to serve.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Snapshot reads the current counter values back out of the registry (via
// testutil.ToFloat64, the same accessor prometheus' own tests use) as
// carbonlog fields, so a command can log its traversal counts without
// keeping a second, duplicate set of plain counters alongside the
// Prometheus ones.
func (r *Recorder) Snapshot() carbonlog.Fields {
	return carbonlog.Fields{
		"groups_visited":   testutil.ToFloat64(r.groupsVisited),
		"objects_visited":  testutil.ToFloat64(r.objectsVisited),
		"bytes_read":       testutil.ToFloat64(r.bytesRead),
		"sort_comparisons": testutil.ToFloat64(r.sortComparisons),
	}
}
