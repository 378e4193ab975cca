package configbuilder

import (
	"context"
	"testing"

	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/configuration"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/fqpn"
	"github.com/specialistvlad/profilegrid/internal/paramstore"
	"github.com/specialistvlad/profilegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeStore(t *testing.T, d domain.Domain) *paramstore.Store {
	t.Helper()
	s := paramstore.New(map[string]any{"emit": true})
	require.NoError(t, s.Put(d, fqpn.Parameter("min"), 1, nil))
	require.NoError(t, s.Put(d, fqpn.Parameter("max"), 100, nil))
	return s
}

var rangeFields = map[string]any{
	"field": "$domain.column",
	"min":   "$parameter.min.value",
	"max":   "$parameter.max.value",
}

func TestDefault_Build(t *testing.T) {
	d := domain.Column("amount", nil)
	s := rangeStore(t, d)

	b, err := NewDefault(builder.Options{
		OptType:   "range_check",
		OptFields: rangeFields,
		OptMeta:   map[string]any{"profiler_details": "${parameter.min.value}..${parameter.max.value}"},
	})
	require.NoError(t, err)
	assert.Equal(t, "range_check", b.Type())
	assert.Len(t, b.References(), 3)

	cfg, err := b.Build(context.Background(), d, s.Scope(d))
	require.NoError(t, err)
	assert.Equal(t, &configuration.Configuration{
		Type:   "range_check",
		Fields: map[string]any{"field": "amount", "min": 1, "max": 100},
		Meta:   map[string]any{"profiler_details": "1..100"},
	}, cfg)
}

func TestDefault_Condition(t *testing.T) {
	d := domain.Column("amount", nil)
	s := rangeStore(t, d)

	testCases := []struct {
		condition any
		emitted   bool
	}{
		{"parameter.min.value < parameter.max.value", true},
		{"parameter.min.value > parameter.max.value", false},
		{"$variables.emit", true},
		{false, false},
	}
	for _, tc := range testCases {
		b, err := NewDefault(builder.Options{OptType: "range_check", OptFields: rangeFields, OptCondition: tc.condition})
		require.NoError(t, err)
		cfg, err := b.Build(context.Background(), d, s.Scope(d))
		require.NoError(t, err)
		assert.Equal(t, tc.emitted, cfg != nil, "condition %v", tc.condition)
	}
}

func TestDefault_Errors(t *testing.T) {
	d := domain.Column("amount", nil)
	s := paramstore.New(nil)

	b, err := NewDefault(builder.Options{OptType: "range_check", OptFields: rangeFields})
	require.NoError(t, err)
	_, err = b.Build(context.Background(), d, s.Scope(d))
	var resErr *errdefs.TemplateResolutionError
	require.ErrorAs(t, err, &resErr)

	_, err = NewDefault(builder.Options{OptFields: rangeFields})
	assert.ErrorContains(t, err, "required")

	_, err = NewDefault(builder.Options{OptType: "x", OptCondition: "parameter.min.value <"})
	var malformed *errdefs.MalformedTemplateError
	assert.ErrorAs(t, err, &malformed)
}

func TestDefault_ValidationParameterBuilders(t *testing.T) {
	r := registry.New(Module{})
	b, err := r.NewConfigurationBuilder(builder.Spec{Type: TypeDefault, Options: builder.Options{
		OptType: "range_check",
		OptValidationParameterBuilders: []any{
			map[string]any{"type": "metric_single_batch", "name": "min", "metric_name": "column.min"},
		},
	}})
	require.NoError(t, err)
	specs := b.ValidationParameterBuilders()
	require.Len(t, specs, 1)
	assert.Equal(t, "min", specs[0].Name)
}
