package domainbuilder

import (
	"context"
	"testing"

	"github.com/specialistvlad/profilegrid/internal/batch"
	"github.com/specialistvlad/profilegrid/internal/builder"
	"github.com/specialistvlad/profilegrid/internal/domain"
	"github.com/specialistvlad/profilegrid/internal/errdefs"
	"github.com/specialistvlad/profilegrid/internal/memdata"
	"github.com/specialistvlad/profilegrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaBatch(id string, cols ...batch.Column) batch.Batch {
	return memdata.NewBatch(id, cols, nil)
}

var defaultSchema = []batch.Column{
	{Name: "id", Type: batch.Numeric},
	{Name: "amount_usd", Type: batch.Numeric},
	{Name: "name", Type: batch.Text},
	{Name: "created_at", Type: batch.Datetime},
	{Name: "fee_usd", Type: batch.Text},
}

func columnNames(t *testing.T, domains []domain.Domain) []string {
	t.Helper()
	names := make([]string, 0, len(domains))
	for _, d := range domains {
		require.Equal(t, domain.TypeColumn, d.Type())
		v, ok := d.Kwarg(domain.KeyColumn)
		require.True(t, ok)
		names = append(names, v.(string))
	}
	return names
}

func buildColumns(t *testing.T, opts builder.Options, batches ...batch.Batch) ([]domain.Domain, error) {
	t.Helper()
	b, err := NewColumnBuilder(opts)
	require.NoError(t, err)
	if len(batches) == 0 {
		batches = []batch.Batch{schemaBatch("b1", defaultSchema...)}
	}
	return b.Build(context.Background(), batches)
}

func TestColumnBuilder_Filters(t *testing.T) {
	testCases := []struct {
		name string
		opts builder.Options
		want []string
	}{
		{"no filters", builder.Options{}, []string{"id", "amount_usd", "name", "created_at", "fee_usd"}},
		{"include list", builder.Options{OptIncludeColumnNames: []any{"name", "id"}}, []string{"id", "name"}},
		{
			"include list ignores suffix and semantic filters",
			builder.Options{
				OptIncludeColumnNames:        []any{"name"},
				OptIncludeColumnNameSuffixes: []any{"_usd"},
				OptIncludeSemanticTypes:      []any{"numeric"},
			},
			[]string{"name"},
		},
		{"suffix include", builder.Options{OptIncludeColumnNameSuffixes: []any{"_usd"}}, []string{"amount_usd", "fee_usd"}},
		{"suffix exclude", builder.Options{OptExcludeColumnNameSuffixes: []any{"_usd", "_at"}}, []string{"id", "name"}},
		{"semantic include", builder.Options{OptIncludeSemanticTypes: []any{"numeric"}}, []string{"id", "amount_usd"}},
		{"semantic exclude", builder.Options{OptExcludeSemanticTypes: []any{"text", "datetime"}}, []string{"id", "amount_usd"}},
		{
			"mode all needs both includes",
			builder.Options{OptIncludeColumnNameSuffixes: []any{"_usd"}, OptIncludeSemanticTypes: []any{"numeric"}},
			[]string{"amount_usd"},
		},
		{
			"mode any needs either include",
			builder.Options{
				OptIncludeColumnNameSuffixes: []any{"_usd"},
				OptIncludeSemanticTypes:      []any{"datetime"},
				OptSemanticFilterMode:        FilterModeAny,
			},
			[]string{"amount_usd", "created_at", "fee_usd"},
		},
		{
			"explicit exclude wins over suffix include",
			builder.Options{OptIncludeColumnNameSuffixes: []any{"_usd"}, OptExcludeColumnNames: []any{"fee_usd"}},
			[]string{"amount_usd"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			domains, err := buildColumns(t, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, columnNames(t, domains))
		})
	}
}

func TestColumnBuilder_ExcludeWinsOverIncludeList(t *testing.T) {
	b := schemaBatch("b1",
		batch.Column{Name: "x", Type: batch.Numeric},
		batch.Column{Name: "y", Type: batch.Numeric},
		batch.Column{Name: "z", Type: batch.Numeric},
	)
	domains, err := buildColumns(t, builder.Options{
		OptIncludeColumnNames: []any{"x", "y"},
		OptExcludeColumnNames: []any{"y"},
	}, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, columnNames(t, domains))
}

func TestColumnBuilder_CommonColumnsAcrossBatches(t *testing.T) {
	b1 := schemaBatch("b1",
		batch.Column{Name: "c", Type: batch.Numeric},
		batch.Column{Name: "a", Type: batch.Numeric},
		batch.Column{Name: "b", Type: batch.Numeric},
	)
	b2 := schemaBatch("b2",
		batch.Column{Name: "a", Type: batch.Numeric},
		batch.Column{Name: "c", Type: batch.Numeric},
	)
	domains, err := buildColumns(t, builder.Options{}, b1, b2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, columnNames(t, domains))
}

func TestColumnBuilder_Details(t *testing.T) {
	domains, err := buildColumns(t, builder.Options{OptIncludeColumnNames: []any{"name"}})
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "text", domains[0].Details()[DetailInferredSemanticType])
}

func TestColumnBuilder_Errors(t *testing.T) {
	t.Run("everything filtered", func(t *testing.T) {
		_, err := buildColumns(t, builder.Options{OptIncludeSemanticTypes: []any{"boolean"}})
		var noDomains *errdefs.NoDomainsFoundError
		require.ErrorAs(t, err, &noDomains)
		assert.Equal(t, "column", noDomains.Builder)
	})

	t.Run("no batches", func(t *testing.T) {
		b, err := NewColumnBuilder(builder.Options{})
		require.NoError(t, err)
		_, err = b.Build(context.Background(), nil)
		var noDomains *errdefs.NoDomainsFoundError
		require.ErrorAs(t, err, &noDomains)
	})

	t.Run("include list names a missing column", func(t *testing.T) {
		_, err := buildColumns(t, builder.Options{OptIncludeColumnNames: []any{"ghost"}})
		var noDomains *errdefs.NoDomainsFoundError
		require.ErrorAs(t, err, &noDomains)
		assert.ErrorContains(t, err, "ghost")
	})

	t.Run("bad options", func(t *testing.T) {
		for _, opts := range []builder.Options{
			{OptSemanticFilterMode: "some"},
			{OptIncludeSemanticTypes: []any{"color"}},
			{"include_columns": []any{"x"}},
		} {
			_, err := NewColumnBuilder(opts)
			assert.Error(t, err, "%v", opts)
		}
	})
}

func TestTableBuilder(t *testing.T) {
	b, err := NewTableBuilder(builder.Options{OptTable: "orders"})
	require.NoError(t, err)

	domains, err := b.Build(context.Background(), []batch.Batch{schemaBatch("b1", defaultSchema...)})
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, domain.TypeTable, domains[0].Type())
	assert.Equal(t, map[string]any{"table": "orders"}, domains[0].Kwargs())
}

func TestMultiColumnBuilder(t *testing.T) {
	b, err := NewMultiColumnBuilder(builder.Options{OptColumnList: []any{"id", "name"}})
	require.NoError(t, err)

	domains, err := b.Build(context.Background(), []batch.Batch{schemaBatch("b1", defaultSchema...)})
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, []string{"id", "name"}, domains[0].Kwargs()[domain.KeyColumnList])

	b, err = NewMultiColumnBuilder(builder.Options{OptColumnList: []any{"id", "ghost"}})
	require.NoError(t, err)
	_, err = b.Build(context.Background(), []batch.Batch{schemaBatch("b1", defaultSchema...)})
	var noDomains *errdefs.NoDomainsFoundError
	require.ErrorAs(t, err, &noDomains)
	assert.Contains(t, noDomains.Reason, "ghost")

	_, err = NewMultiColumnBuilder(builder.Options{OptColumnList: []any{"id"}})
	assert.Error(t, err)
}

func TestModule_Registers(t *testing.T) {
	r := registry.New(Module{})
	for _, typ := range []string{"column", "table", "multi_column"} {
		opts := builder.Options{}
		if typ == "multi_column" {
			opts = builder.Options{OptColumnList: []any{"a", "b"}}
		}
		b, err := r.NewDomainBuilder(builder.Spec{Type: typ, Options: opts})
		require.NoError(t, err)
		assert.Equal(t, typ, b.Type())
	}
}
