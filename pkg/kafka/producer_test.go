package kafka

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(WithRegisterer(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestNewProducerSharesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithRegisterer(reg))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithRegisterer(reg))
	require.NoError(t, err)
	defer b.Close()

	assert.Same(t, a.metrics.msgs, b.metrics.msgs)
	a.metrics.observe("reports", "gzip", 10, 0, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.msgs.WithLabelValues("reports", "gzip", "ok")))
}

func TestEncode(t *testing.T) {
	v, err := Encode(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(v))

	v, err = Encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(v))

	_, err = Encode(func() {})
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Zstd, ParseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, ParseCompression("bogus"))
}
