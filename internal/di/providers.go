package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"TFoldSV/internal/domain/repository"
	"TFoldSV/internal/handler/api"
	internalrepo "TFoldSV/internal/repository"
	"TFoldSV/internal/services/synthetic"
	"TFoldSV/internal/usecase"
	"TFoldSV/pkg/cache"
	pkgch "TFoldSV/pkg/clickhouse"
	"TFoldSV/pkg/config"
	xhttp "TFoldSV/pkg/http"
	pkgkafka "TFoldSV/pkg/kafka"
	applogger "TFoldSV/pkg/logger"
	"TFoldSV/pkg/metrics"
	"TFoldSV/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the pipeline metrics recorder, or nil when metrics are off.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(reg)
}

// ProvideFoldPipeline creates the resample/fold/label/divergence orchestrator.
func ProvideFoldPipeline(l *applogger.Logger, m repository.Metrics) *usecase.FoldPipeline {
	return usecase.NewFoldPipeline(
		usecase.WithPipelineLogger(l),
		usecase.WithPipelineMetrics(m),
	)
}

// ProvideClickHouseClient connects to ClickHouse when enabled and creates the tables when
// init_schema is set. It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stmts := internalrepo.Schema(cfg.ClickHouse.Database, cfg.ClickHouse.BarsTable, cfg.ClickHouse.ScoresTable)
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}

	l.Info("clickhouse ready",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideBarSource selects the ingestion collaborator named by source.type.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarSource, error) {
	switch cfg.Source.Type {
	case "csv":
		return internalrepo.NewCSVBarSource(cfg.Source.CSV.Path,
			internalrepo.WithInvertQuote(cfg.Source.CSV.InvertQuote),
			internalrepo.WithCSVLogger(l),
		), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("clickhouse source requires clickhouse.enabled")
		}
		src := internalrepo.NewCHBarSource(ch, cfg.ClickHouse.BarsTable)
		src.SetLogger(l)
		return src, nil
	case "synthetic":
		s := cfg.Source.Synthetic
		return internalrepo.NewSyntheticBarSource(synthetic.Config{
			Seed:  s.Seed,
			Mu:    s.Mu,
			Sigma: s.Sigma,
			Step:  s.Step,
			Bars:  s.Bars,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// ProvideScoreStore returns the ClickHouse score sink, or nil when scores are not stored.
func ProvideScoreStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.ScoreStore {
	if ch == nil || !cfg.ClickHouse.StoreScores {
		return nil
	}
	store := internalrepo.NewCHScoreStore(ch, cfg.ClickHouse.ScoresTable)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher wraps the producer for fold reports.
func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
}

// ProvideReportCache builds the report cache: an in-memory L1 in front of Redis when
// Redis is enabled and reachable, memory only otherwise.
func ProvideReportCache(cfg *config.Config, l *applogger.Logger) cache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
				cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
			)
		}
		l.Warn("redis unavailable, using memory cache",
			applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
	}
	return cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
		cache.WithMemoryTTL(cfg.Cache.TTL),
	)
}

// ProvideFoldReportUseCase creates the report use case and checks the configured
// pipeline defaults.
func ProvideFoldReportUseCase(
	cfg *config.Config,
	source repository.BarSource,
	pipeline *usecase.FoldPipeline,
	c cache.Service,
	store repository.ScoreStore,
	pub repository.ReportPublisher,
	l *applogger.Logger,
) (*usecase.FoldReportUseCase, error) {
	p := cfg.Pipeline
	uc := usecase.NewFoldReportUseCase(source, pipeline,
		usecase.WithReportDefaults(usecase.ReportDefaults{
			Symbol:       cfg.Source.Symbol,
			Interval:     p.Interval,
			FoldSize:     p.FoldSize,
			Label:        p.Label,
			Distribution: p.Distribution,
			Shift:        p.Shift,
			AutoNames:    p.AutoNames,
			ColNames:     p.ColNames,
			Workers:      p.Workers,
		}),
		usecase.WithReportTimeout(p.Timeout),
		usecase.WithReportCache(c, cfg.Cache.TTL),
		usecase.WithScoreStore(store),
		usecase.WithReportPublisher(pub),
		usecase.WithReportLogger(l),
	)
	if err := uc.ValidateDefaults(); err != nil {
		return nil, fmt.Errorf("pipeline defaults: %w", err)
	}
	return uc, nil
}

// ProvideFoldsHandler creates the fold report HTTP handler.
func ProvideFoldsHandler(l *applogger.Logger, uc *usecase.FoldReportUseCase) *api.FoldsEchoHandler {
	return api.NewFoldsEchoHandler(l, uc)
}

// ProvideHTTPServer creates the Echo server, or nil when the API is disabled.
func ProvideHTTPServer(cfg *config.Config, h *api.FoldsEchoHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithAddress(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithRateLimit("/api/", cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSec),
		xhttp.WithRegistry(reg),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application. Resources close in the order listed: the
// publisher flushes before the stores and clients go away.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.FoldReportUseCase,
	srv *xhttp.Server,
	pub repository.ReportPublisher,
	store repository.ScoreStore,
	c cache.Service,
	ch *pkgch.Client,
) *server.App {
	var resources []server.Resource
	if pub != nil {
		resources = append(resources, server.Resource{Name: "kafka publisher", Closer: pub})
	}
	if store != nil {
		resources = append(resources, server.Resource{Name: "score store", Closer: store})
	}
	if c != nil {
		resources = append(resources, server.Resource{Name: "report cache", Closer: c})
	}
	if ch != nil {
		resources = append(resources, server.Resource{Name: "clickhouse", Closer: ch})
	}
	return server.New(cfg, l, uc, srv, resources...)
}
