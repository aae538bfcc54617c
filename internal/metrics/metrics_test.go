package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderExportsCounters(t *testing.T) {
	r := New()
	r.AddGroupsVisited(3)
	r.IncObjectsVisited()
	r.AddBytesRead(128)
	r.AddSortComparisons(42)
	r.ObserveCommandDuration("stat", 0.02)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "carbon_groups_visited_total 3")
	assert.Contains(t, body, "carbon_objects_visited_total 1")
	assert.Contains(t, body, "carbon_bytes_read_total 128")
	assert.Contains(t, body, "carbon_sort_comparisons_total 42")
	assert.Contains(t, body, "carbon_command_duration_seconds")
}

func TestTwoRecordersDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.IncGroupsVisited()
	b.AddGroupsVisited(5)

	reqA := httptest.NewRequest("GET", "/metrics", nil)
	recA := httptest.NewRecorder()
	a.Handler().ServeHTTP(recA, reqA)
	assert.Contains(t, recA.Body.String(), "carbon_groups_visited_total 1")

	reqB := httptest.NewRequest("GET", "/metrics", nil)
	recB := httptest.NewRecorder()
	b.Handler().ServeHTTP(recB, reqB)
	assert.Contains(t, recB.Body.String(), "carbon_groups_visited_total 5")
}
