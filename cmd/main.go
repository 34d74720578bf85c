package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Drivers
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	// Instrumentation
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/config"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/adapters/secondary/eventbroker"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/adapters/secondary/repository"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/adapters/secondary/security"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/adapters/secondary/storage"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/ports"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/services"
)

func main() {
	// 1. Config & Logger
	cfg := config.Load()
	initLogger(cfg)
	slog.Info("🚀 Starting Timeline Service", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: Redis (store distant adressé par clé)
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		panic(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Redis")

	timelineRepo := repository.NewRedisTimelineRepo(rdb)
	channelRepo := repository.NewRedisChannelRepo(rdb)

	// 4. Infrastructure: NATS (fil de change-notifications)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("✅ Connected to NATS")

	stream := eventbroker.NewNatsEventStream(nc)

	// 5. Infrastructure: MinIO (blob store photos)
	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		slog.Error("Unable to connect to MinIO", "error", err)
		os.Exit(1)
	}
	blobs := storage.NewMinioBlobStore(mc, cfg.StorageBucket)
	slog.Info("✅ Connected to MinIO", "bucket", cfg.StorageBucket)

	// 6. Session active
	var session ports.Session
	if cfg.SessionToken != "" {
		jwtSession, err := security.NewJWTSession(cfg.SessionToken, []byte(cfg.SessionSecret))
		if err != nil {
			slog.Error("Invalid session token", "error", err)
			os.Exit(1)
		}
		session = jwtSession
	} else {
		// Environnement local sans identité : session anonyme.
		session = &security.StaticSession{User: domain.User{ID: "local", Name: "Local User"}}
	}

	// 7. Initialisation du Core
	store := services.NewFeedStore()
	store.SetObserver(func() {
		slog.Debug("🔄 Timeline updated", "posts", store.Len())
	})

	timeline := services.NewTimelineSync(store, timelineRepo, stream, blobs, session, blobs.LocationPrefix())
	channels := services.NewChannelService(channelRepo, stream)

	// 8. Démarrage des subscriptions (added + changed, cycles indépendants)
	onEvent := func(err error) {
		if err != nil {
			slog.Error("❌ Timeline event failed", "error", err)
		}
	}
	if err := timeline.FetchPosts(ctx, onEvent); err != nil {
		slog.Error("Failed to start post fetching", "error", err)
		os.Exit(1)
	}
	if err := timeline.BeginListening(ctx, onEvent); err != nil {
		slog.Error("Failed to start change listening", "error", err)
		os.Exit(1)
	}
	if err := channels.BeginListening(ctx); err != nil {
		slog.Error("Failed to start channel listening", "error", err)
		os.Exit(1)
	}
	slog.Info("👂 Listening for timeline events (NATS)", "window", services.WindowSize)

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down...")

	timeline.EndListening()
	timeline.EndPostFetching()
	channels.EndListening()
	slog.Info("👋 Timeline service exited", "dropped_events", timeline.DroppedEvents())
}

// --- Helpers ---

func initLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("timeline-service"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
