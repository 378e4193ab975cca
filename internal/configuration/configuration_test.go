package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguration_EqualIgnoresMeta(t *testing.T) {
	a := New("range_check", map[string]any{"field": "amount", "min": 1, "max": 100}, map[string]any{"profiler": "rule_a"})
	b := New("range_check", map[string]any{"max": 100, "min": 1, "field": "amount"}, map[string]any{"profiler": "rule_b"})
	c := New("range_check", map[string]any{"field": "amount", "min": 2, "max": 100}, nil)
	d := New("not_null", map[string]any{"field": "amount", "min": 1, "max": 100}, nil)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}

func TestNew_CopiesMaps(t *testing.T) {
	fields := map[string]any{"field": "amount"}
	c := New("not_null", fields, nil)
	fields["field"] = "mutated"

	assert.Equal(t, map[string]any{"field": "amount"}, c.Fields)
	assert.Nil(t, c.Meta)
}
