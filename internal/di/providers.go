package di

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	"FlareScope/internal/domain/models"
	"FlareScope/internal/domain/repository"
	domsvc "FlareScope/internal/domain/service"
	"FlareScope/internal/handler/api"
	mid "FlareScope/internal/middleware"
	"FlareScope/internal/pipeline"
	internalrepo "FlareScope/internal/repository"
	icache "FlareScope/internal/service/cache"
	"FlareScope/internal/service/goesfeed"
	"FlareScope/internal/services/loader"
	"FlareScope/internal/services/predictor"
	"FlareScope/internal/usecase"
	pkgcache "FlareScope/pkg/cache"
	pkgch "FlareScope/pkg/clickhouse"
	"FlareScope/pkg/config"
	pkgkafka "FlareScope/pkg/kafka"
	applogger "FlareScope/pkg/logger"
	"FlareScope/pkg/metrics"
	"FlareScope/pkg/queue"
	"FlareScope/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Tables are created by the repositories; only the database here.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS flarescope",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideFluxStorage creates ClickHouse flux sample storage.
func ProvideFluxStorage(chClient *pkgch.Client, cfg *config.Config) (repository.Storage, error) {
	store := internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.FluxTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideAnalysisStore creates the ClickHouse analysis-run archive.
func ProvideAnalysisStore(chClient *pkgch.Client, cfg *config.Config, lgr *applogger.Logger) (*internalrepo.CHAnalysisStore, error) {
	store := internalrepo.NewCHAnalysisStore(chClient, cfg.ClickHouse.AnalysisTable)
	store.SetLogger(lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideFluxPublisher creates the Kafka publisher for flux samples and
// analysis events.
func ProvideFluxPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.AnalysisTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaFluxHandler registers handler for the flux topic.
func ProvideKafkaFluxHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaFluxHandler {
	return usecase.NewKafkaFluxHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideFluxStream creates the GOES WebSocket flux stream.
func ProvideFluxStream(cfg *config.Config) repository.FluxStream {
	return goesfeed.New(
		cfg.Feed.WebSocketURL,
		cfg.Feed.Sources,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideFluxProcessor creates the flux processor use case.
func ProvideFluxProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.FluxProcessor {
	return usecase.NewFluxProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideFluxCollector creates the flux collector use case.
func ProvideFluxCollector(
	stream repository.FluxStream,
	processor *usecase.FluxProcessor,
	metrics repository.Metrics,
) *usecase.FluxCollector {
	// Validating pipeline between WebSocket and the backend
	pipe := mid.NewFluxPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewFluxCollector(stream, processor, metrics, pipe)
}

// ProvideWindowConfig derives the model windowing from config.
func ProvideWindowConfig(cfg *config.Config) models.WindowConfig {
	return models.WindowConfig{
		SequenceLength: cfg.Model.SequenceLength,
		FeatureCount:   cfg.Model.FeatureCount,
	}
}

// ProvideFlareAnalyzer assembles the full extraction pipeline. A fixed
// fallback seed makes the synthetic path reproducible; seed zero means
// time-based.
func ProvideFlareAnalyzer(
	cfg *config.Config,
	windowCfg models.WindowConfig,
	metrics repository.Metrics,
	lgr *applogger.Logger,
) *usecase.FlareAnalyzer {
	seed := cfg.Fallback.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	classifier := pipeline.NewClassifier(cfg.Thresholds.NanoflareAlpha, cfg.Thresholds.NanoflareIntensity)
	analyzer := pipeline.NewEnergyAnalyzer()
	aggregator := pipeline.NewAggregator()

	var (
		fileLoader domsvc.SeriesLoader   = loader.New()
		model      domsvc.FlarePredictor = predictor.NewHTTPPredictor(cfg, rand.New(rand.NewSource(seed+1)))
	)
	decoder := pipeline.NewDecoder(cfg.Thresholds.AmplitudeMin, rand.New(rand.NewSource(seed+2)))
	fallback := pipeline.NewSyntheticGenerator(
		rand.New(rand.NewSource(seed)),
		classifier, analyzer, aggregator,
		cfg.Model.Version,
	)

	return usecase.NewFlareAnalyzer(
		fileLoader, model,
		decoder, classifier, analyzer, aggregator, fallback,
		windowCfg, metrics, lgr,
	)
}

// ProvideResultCache creates the deferred-analysis result cache: redis when
// enabled, in-process memory otherwise. Both ride the shared cache service
// behind the byte-oriented API the job path needs.
func ProvideResultCache(cfg *config.Config, lgr *applogger.Logger) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		host, port := splitHostPort(cfg.Cache.Redis.Addr, 6379)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix("flarescope:results"),
		)
		if err == nil {
			return icache.New(rc)
		}
		lgr.Warn("redis result cache unavailable, using memory only", applogger.Error(err))
	}
	return icache.New(pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(1024)))
}

// ProvideLiveCache creates the short-TTL cache for live analysis envelopes:
// layered memory over redis when redis is enabled, memory only otherwise.
func ProvideLiveCache(cfg *config.Config, lgr *applogger.Logger) pkgcache.Service {
	if cfg.Cache.Redis.Enabled {
		host, port := splitHostPort(cfg.Cache.Redis.Addr, 6379)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix("flarescope:live"),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
		}
		lgr.Warn("redis live cache unavailable, using memory only", applogger.Error(err))
	}
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(256))
}

func splitHostPort(addr string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

// ProvideJobQueue creates the redis job queue with the deferred-analysis job
// registered. Returns nil when redis is disabled; the API then serves
// synchronous analyses only.
func ProvideJobQueue(
	cfg *config.Config,
	analyzer *usecase.FlareAnalyzer,
	cache icache.BytesCache,
	lgr *applogger.Logger,
) *queue.RedisQueue {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewAnalysisJob(analyzer, cache, cfg.Cache.ResultTTL, lgr))
	return q
}

// ProvideLogPublisher creates the aggregated-log sink. Log batches go through
// a producer-only redis queue so the collector never blocks on registration.
// Nil when redis is disabled; logs then stay on stdout only.
func ProvideLogPublisher(cfg *config.Config, lgr *applogger.Logger) applogger.Publisher {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	return queue.NewRedisPublisher(lgr, client, queue.WithKeyPrefix("flarescope:logs"))
}

// ProvideAnalysisHandler assembles the HTTP surface.
func ProvideAnalysisHandler(
	cfg *config.Config,
	analyzer *usecase.FlareAnalyzer,
	store repository.Storage,
	cache icache.BytesCache,
	live pkgcache.Service,
	jobQueue *queue.RedisQueue,
	lgr *applogger.Logger,
) *api.AnalysisHandler {
	seed := cfg.Fallback.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	reports := usecase.NewReportGenerator(rand.New(rand.NewSource(seed + 3)))

	h := api.NewAnalysisHandler(analyzer, reports, api.ModelDescriptor{
		ModelType:      "enhanced_flare_decomposition",
		Version:        cfg.Model.Version,
		SequenceLength: cfg.Model.SequenceLength,
		FeatureCount:   cfg.Model.FeatureCount,
		Capabilities: []string{
			"Flare separation",
			"Nanoflare detection",
			"Energy estimation",
			"Power law analysis",
			"Attention mechanism",
			"Residual connections",
		},
	})
	h.SetLogger(lgr)
	h.SetCache(cache)
	h.SetLiveCache(live)
	h.SetStorage(store)
	if jobQueue != nil {
		h.SetQueue(jobQueue)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.FluxCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaFluxHandler,
	chClient *pkgch.Client,
	analyzer *usecase.FlareAnalyzer,
	analysisStore *internalrepo.CHAnalysisStore,
	pub repository.Publisher,
	handler *api.AnalysisHandler,
	jobQueue *queue.RedisQueue,
	logPub applogger.Publisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	analyzer.SetArchive(analysisStore, pub)

	app := server.New(cfg, lgr, collector, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	app.SetJobQueue(jobQueue)
	if logPub != nil {
		app.SetLogPublisher(logPub)
	}
	if collector != nil {
		app.FluxProc = collector.Processor()
	}
	return app
}
