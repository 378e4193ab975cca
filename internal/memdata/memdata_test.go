package memdata

import (
	"context"
	"strings"
	"testing"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const records = `[
  {"amount": 1,   "name": "a", "created": "2024-01-02", "active": true},
  {"amount": 50,  "name": "b", "created": "2024-01-03", "active": false},
  {"amount": 100, "name": "a", "created": "2024-01-04", "active": true},
  {"amount": null, "name": "c", "created": "2024-01-05"}
]`

func loadBatch(t *testing.T) *Batch {
	t.Helper()
	b, err := LoadJSON("b1", strings.NewReader(records))
	require.NoError(t, err)
	return b
}

func TestLoadJSON_InfersSchema(t *testing.T) {
	b := loadBatch(t)
	cols, err := b.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []batch.Column{
		{Name: "active", Type: batch.Boolean},
		{Name: "amount", Type: batch.Numeric},
		{Name: "created", Type: batch.Datetime},
		{Name: "name", Type: batch.Text},
	}, cols)
	assert.Equal(t, 4, b.RowCount())
	assert.Equal(t, "b1", b.ID())

	_, err = LoadJSON("bad", strings.NewReader(`{"not": "a list"}`))
	assert.Error(t, err)
}

func TestBackend_Compute(t *testing.T) {
	b := loadBatch(t)
	be := NewBackend()
	ctx := context.Background()
	amount := map[string]any{"column": "amount"}

	testCases := []struct {
		metric string
		kwargs map[string]any
		value  map[string]any
		want   any
	}{
		{ColumnMin, amount, nil, float64(1)},
		{ColumnMax, amount, nil, float64(100)},
		{ColumnSum, amount, nil, float64(151)},
		{ColumnMean, amount, nil, float64(151) / 3},
		{ColumnCount, amount, nil, 3},
		{ColumnNullCount, amount, nil, 1},
		{ColumnDistinctValues, map[string]any{"column": "name"}, nil, []any{"a", "b", "c"}},
		{ColumnQuantiles, amount, map[string]any{"quantiles": []any{0.0, 0.5, 1.0}}, []any{float64(1), float64(50), float64(100)}},
		{TableRowCount, nil, nil, 4},
		{TableColumns, nil, nil, []any{"active", "amount", "created", "name"}},
	}
	for _, tc := range testCases {
		t.Run(tc.metric, func(t *testing.T) {
			v, details, err := be.Compute(ctx, b, metric.Request{Metric: tc.metric, DomainKwargs: tc.kwargs, ValueKwargs: tc.value})
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
			assert.Equal(t, "b1", details["batch_id"])
		})
	}
}

func TestBackend_Metrics(t *testing.T) {
	names := NewBackend().Metrics()
	assert.Len(t, names, 10)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, ColumnQuantiles)
	assert.Contains(t, names, TableRowCount)
}

func TestBackend_Errors(t *testing.T) {
	b := loadBatch(t)
	be := NewBackend()
	ctx := context.Background()

	_, _, err := be.Compute(ctx, b, metric.Request{Metric: "column.nope", DomainKwargs: map[string]any{"column": "amount"}})
	assert.ErrorContains(t, err, "unsupported metric")

	_, _, err = be.Compute(ctx, b, metric.Request{Metric: ColumnMin, DomainKwargs: map[string]any{"column": "name"}})
	assert.ErrorContains(t, err, "non-numeric")

	_, _, err = be.Compute(ctx, b, metric.Request{Metric: ColumnMin})
	assert.ErrorContains(t, err, "domain kwarg")

	_, _, err = be.Compute(ctx, b, metric.Request{Metric: ColumnMin, DomainKwargs: map[string]any{"column": "ghost"}})
	assert.ErrorContains(t, err, "no column")

	_, _, err = be.Compute(ctx, b, metric.Request{Metric: ColumnQuantiles, DomainKwargs: map[string]any{"column": "amount"}, ValueKwargs: map[string]any{"quantiles": []any{2}}})
	assert.ErrorContains(t, err, "between 0 and 1")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = be.Compute(cancelled, b, metric.Request{Metric: TableRowCount})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackend_EmptyColumn(t *testing.T) {
	b := NewBatch("empty", []batch.Column{{Name: "x", Type: batch.Numeric}}, []map[string]any{{"x": nil}})
	v, _, err := NewBackend().Compute(context.Background(), b, metric.Request{Metric: ColumnMax, DomainKwargs: map[string]any{"column": "x"}})
	require.NoError(t, err)
	assert.Nil(t, v)
}
