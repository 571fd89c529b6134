package labels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TFoldSV/internal/domain/models"
)

func sample() models.Table {
	ts := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	return models.Table{Bars: []models.Bar{
		{Time: ts, Open: 1.25, High: 1.35, Low: 1.15, Close: 1.30},
		{Time: ts.Add(8 * time.Hour), Open: 1.30, High: 1.35, Low: 1.15, Close: 1.25},
		{Time: ts.Add(16 * time.Hour), Open: 1.30, High: 1.30, Low: 1.30, Close: 1.30},
	}}
}

func TestLabelBinary(t *testing.T) {
	got, err := Label(sample(), Binary)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, got.Values, "equal close and open maps to 0")
	assert.Equal(t, "binary", got.Mode)
}

func TestLabelContinuous(t *testing.T) {
	got, err := Label(sample(), Continuous)
	require.NoError(t, err)
	require.Len(t, got.Values, 3)
	assert.InDelta(t, 0.05, got.Values[0], 1e-12)
	assert.InDelta(t, -0.05, got.Values[1], 1e-12)
	assert.InDelta(t, 0, got.Values[2], 1e-12)
}

func TestLabelKeepsIndex(t *testing.T) {
	table := sample()
	got, err := Label(table, Continuous)
	require.NoError(t, err)
	for i, b := range table.Bars {
		assert.Equal(t, b.Time, got.Index[i])
	}
}

func TestLabelAliases(t *testing.T) {
	m, err := ParseMode("b_co")
	require.NoError(t, err)
	assert.Equal(t, Binary, m)

	m, err = ParseMode("co")
	require.NoError(t, err)
	assert.Equal(t, Continuous, m)
}

func TestLabelUnsupportedMode(t *testing.T) {
	_, err := Label(sample(), Mode("sign"))
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = ParseMode("sign")
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestLabelEmptyTable(t *testing.T) {
	got, err := Label(models.Table{}, Binary)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}
