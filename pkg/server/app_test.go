package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TFoldSV/internal/domain/models"
	"TFoldSV/internal/repository"
	"TFoldSV/internal/services/synthetic"
	"TFoldSV/internal/usecase"
	"TFoldSV/pkg/config"
	xhttp "TFoldSV/pkg/http"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func dailyReports() *usecase.FoldReportUseCase {
	src := repository.NewSyntheticBarSource(synthetic.Config{Bars: 3 * 365, Step: 24 * time.Hour})
	return usecase.NewFoldReportUseCase(src, nil, usecase.WithReportDefaults(usecase.ReportDefaults{
		Interval:     "D",
		FoldSize:     "year",
		Label:        "binary",
		Distribution: "gamma",
		AutoNames:    true,
	}))
}

func TestRunOnceWritesReport(t *testing.T) {
	closed := 0
	app := New(&config.Config{}, nil, dailyReports(), nil,
		Resource{Name: "store", Closer: closerFunc(func() error { closed++; return nil })})

	var buf bytes.Buffer
	require.NoError(t, app.RunOnce(context.Background(), &buf))

	var report models.FoldReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "synthetic", report.Source)
	assert.Equal(t, "year", report.FoldSize)
	assert.Len(t, report.Folds, 3)
	assert.Equal(t, 6, len(report.Scores)+len(report.Errors))
	assert.Equal(t, 1, closed)
}

func TestCloseJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := []string{}
	app := New(&config.Config{}, nil, nil, nil,
		Resource{Name: "a", Closer: closerFunc(func() error { calls = append(calls, "a"); return boom })},
		Resource{Name: "nil"},
		Resource{Name: "b", Closer: closerFunc(func() error { calls = append(calls, "b"); return nil })},
	)

	err := app.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close a")
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestRunWithoutServer(t *testing.T) {
	app := New(&config.Config{}, nil, dailyReports(), nil)
	assert.Error(t, app.Run(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := xhttp.NewServer(nil,
		xhttp.WithAddress("127.0.0.1", 0),
		xhttp.WithTimeouts(time.Second, time.Second, time.Second),
		xhttp.WithRegistry(prometheus.NewRegistry()))
	closed := false
	app := New(&config.Config{}, nil, dailyReports(), srv,
		Resource{Name: "cache", Closer: closerFunc(func() error { closed = true; return nil })})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))
	assert.True(t, closed)
}
