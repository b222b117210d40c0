package reporting

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage/memory"
	"energy-tariffs/internal/storage/storagetest"
	"energy-tariffs/internal/timeseries"
)

var (
	may      = derivation.Month{Year: 2023, Month: time.May}
	fixedNow = time.Date(2023, 6, 2, 8, 0, 0, 0, time.UTC)
)

func monthly(name, source string, origin domain.Origin, at time.Time, value float64) *domain.IndexingValue {
	return &domain.IndexingValue{
		Name:      name,
		Value:     value,
		Timeframe: domain.TimeframeMonthly,
		Timestamp: at,
		Source:    source,
		Origin:    origin,
	}
}

func setupTestData(t *testing.T) *Generator {
	t.Helper()
	ctx := context.Background()

	ix, err := catalog.NewIndex(memory.NewCatalogStore(), 0, nil)
	require.NoError(t, err)
	repo := timeseries.NewRepository(memory.NewValueStore(), ix, timeseries.Options{}, nil)

	start := may.Start(time.UTC)
	values := []*domain.IndexingValue{
		monthly("Epex Spot BE", "Engie", domain.OriginDerived, start, 101.37),
		monthly("ZTP DAM", "ICE", domain.OriginDerived, start, 35.5),
		monthly("TTF 103", "Engie", domain.OriginOriginal, start, 38.25),
		monthly("Brent 601", "Engie", domain.OriginOriginal, start.AddDate(0, -1, 0), 80),
	}
	values = append(values, storagetest.Hourly(start, 3)...)
	_, err = repo.PutBatch(ctx, values)
	require.NoError(t, err)

	return NewGenerator(repo, time.UTC).WithClock(func() time.Time { return fixedNow })
}

func TestGenerator_Generate(t *testing.T) {
	r, err := setupTestData(t).Generate(context.Background(), may)
	require.NoError(t, err)

	assert.Equal(t, "2023-05", r.Month)
	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.Equal(t, SeriesSummary{Total: 5, Original: 3, Derived: 2}, r.Series)

	require.Len(t, r.Values, 3)
	names := make([]string, len(r.Values))
	for i, v := range r.Values {
		names[i] = v.Name
	}
	assert.Equal(t, []string{"Epex Spot BE", "TTF 103", "ZTP DAM"}, names)
	assert.Equal(t, 101.37, r.Values[0].Value)

	assert.False(t, r.Complete())
	assert.Equal(t, []string{"Engie#ORIGINAL#MONTHLY#Brent 601"}, r.Missing)
}

func TestRenderMarkdown(t *testing.T) {
	r, err := setupTestData(t).Generate(context.Background(), may)
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.True(t, strings.HasPrefix(md, "# Index Statement 2023-05\n"))
	assert.Contains(t, md, "| Engie | Epex Spot BE | DERIVED | 2023-05-01 | 101.3700 |")
	assert.Contains(t, md, "## Missing")
	assert.Contains(t, md, "- Engie#ORIGINAL#MONTHLY#Brent 601")
}

func TestRenderCSV(t *testing.T) {
	rows := []ValueRow{
		{Name: "Epex Spot BE", Source: "Engie", Origin: domain.OriginDerived, Date: may.Start(time.UTC), Value: 101.37},
		{Name: "TTF, front", Source: "ICE", Origin: domain.OriginOriginal, Date: may.Start(time.UTC), Value: 1},
	}
	lines := strings.Split(strings.TrimSpace(RenderCSV(rows)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "source,name,origin,date,value", lines[0])
	assert.Equal(t, "Engie,Epex Spot BE,DERIVED,2023-05-01T00:00:00Z,101.370000", lines[1])
	assert.Equal(t, `ICE,"TTF, front",ORIGINAL,2023-05-01T00:00:00Z,1.000000`, lines[2])
}

func TestRenderPDF(t *testing.T) {
	r, err := setupTestData(t).Generate(context.Background(), may)
	require.NoError(t, err)

	out, err := RenderPDF(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderXLSX(t *testing.T) {
	r, err := setupTestData(t).Generate(context.Background(), may)
	require.NoError(t, err)

	out, err := RenderXLSX(r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	month, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2023-05", month)

	rows, err := f.GetRows("values")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Engie", "Epex Spot BE", "DERIVED", "2023-05-01", "101.37"}, rows[1])
}
