package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TFoldSV/internal/domain/models"
	domrepo "TFoldSV/internal/domain/repository"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestReadCSVHeaderless(t *testing.T) {
	raw, err := readCSV(strings.NewReader(
		"2010-01-04 00:00:00,1.1,1.3,1.0,1.2,10\n2010-01-04 01:00:00,1.2,1.4,1.1,1.3,20\n"), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"timestamp", "open", "high", "low", "close", "volume"}, raw.Columns)
	require.Equal(t, 2, raw.Len())
	assert.Equal(t, time.Date(2010, 1, 4, 1, 0, 0, 0, time.UTC), raw.Times[1])
	assert.Equal(t, []float64{1.2, 1.4, 1.1, 1.3, 20}, raw.Values[1])
}

func TestReadCSVHeaderKeepsNames(t *testing.T) {
	raw, err := readCSV(strings.NewReader("Timestamp,Open,High,Low,Close\n2010-01-04,1,2,0.5,1.5\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "open", "high", "low", "close"}, raw.Columns)
	assert.Equal(t, 1, raw.Len())
}

func TestReadCSVInvertQuote(t *testing.T) {
	raw, err := readCSV(strings.NewReader("2010-01-04 00:00:00,0.08,0.0825,0.075,0.0800,7\n"), true)
	require.NoError(t, err)

	// 1/0.08 = 12.5; high and low swap after inversion.
	assert.Equal(t, []float64{12.5, 13.33333, 12.12121, 12.5, 7}, raw.Values[0])
}

func TestReadCSVErrors(t *testing.T) {
	cases := map[string]string{
		"bad number":    "2010-01-04,1,2,x,1\n",
		"bad timestamp": "2010-01-04,1,2,1,1\nlater,1,2,1,1\n",
		"ragged":        "2010-01-04,1,2,1,1\n2010-01-05,1,2,1\n",
		"too wide":      "2010-01-04,1,2,1,1,1,1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readCSV(strings.NewReader(body), false)
			assert.ErrorIs(t, err, models.ErrSchema)
		})
	}

	_, err := readCSV(strings.NewReader("2010-01-04,1,0,1,1\n"), true)
	assert.ErrorIs(t, err, models.ErrSchema)
}

func TestCSVBarSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "MP_2011.csv", "2011-01-03 00:00:00,2,3,1,2,1\n")
	writeFile(t, dir, "MP_2010.csv", "2010-12-31 00:00:00,1,2,0.5,1,1\n2010-01-04 00:00:00,1,2,0.5,1,1\n")
	writeFile(t, dir, "notes.md", "ignored")

	src := NewCSVBarSource(dir)
	assert.Equal(t, "csv", src.Name())
	raw, err := src.LoadBars(context.Background(), domrepo.BarQuery{})
	require.NoError(t, err)

	require.Equal(t, 3, raw.Len())
	for i := 1; i < raw.Len(); i++ {
		assert.True(t, raw.Times[i-1].Before(raw.Times[i]))
	}

	clipped, err := src.LoadBars(context.Background(), domrepo.BarQuery{
		From: time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, clipped.Len())
}

func TestCSVBarSourceMissingPath(t *testing.T) {
	_, err := NewCSVBarSource(filepath.Join(t.TempDir(), "none.csv")).LoadBars(context.Background(), domrepo.BarQuery{})
	assert.Error(t, err)

	_, err = NewCSVBarSource(t.TempDir()).LoadBars(context.Background(), domrepo.BarQuery{})
	assert.Error(t, err)
}

func TestCSVBarSourceColumnMismatchAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "2010-01-04,1,2,0.5,1,1\n")
	writeFile(t, dir, "b.csv", "2011-01-04,1,2,0.5,1\n")
	_, err := NewCSVBarSource(dir).LoadBars(context.Background(), domrepo.BarQuery{})
	assert.ErrorIs(t, err, models.ErrSchema)
}
