package carbonlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFieldsSortsKeys(t *testing.T) {
	got := formatFields(Fields{"roots": 3, "bytes_read": 128, "parallel": true})
	assert.Equal(t, "bytes_read=128 parallel=true roots=3", got)
}

func TestWithFieldsMergesWithoutMutatingParent(t *testing.T) {
	base := New(INFO).WithFields(Fields{"source": "doc.json"})
	derived := base.WithFields(Fields{"roots": 2})

	assert.Equal(t, Fields{"source": "doc.json"}, base.fields)
	assert.Equal(t, Fields{"source": "doc.json", "roots": 2}, derived.fields)
}

func TestWithFieldsLaterCallsOverrideEarlierKeys(t *testing.T) {
	l := New(INFO).WithFields(Fields{"mode": "draft"}).WithFields(Fields{"mode": "read-optimized"})
	assert.Equal(t, Fields{"mode": "read-optimized"}, l.fields)
}
