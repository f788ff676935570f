package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinicore/dentbook/libs/config"
	"github.com/clinicore/dentbook/libs/db"
	"github.com/clinicore/dentbook/libs/httpx"
	"github.com/clinicore/dentbook/libs/kafkax"
	otelx "github.com/clinicore/dentbook/libs/otel"
	"github.com/clinicore/dentbook/libs/outbox"
	"github.com/clinicore/dentbook/libs/runtime"
	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
	"github.com/clinicore/dentbook/services/clinic-api/internal/handlers"
	"github.com/clinicore/dentbook/services/clinic-api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "clinic-api")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	store := storage.New(pool)
	svc := booking.New(store)

	outboxPublisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	apptHandler := handlers.NewAppointmentHandler(svc, logger)
	schedHandler := handlers.NewScheduleHandler(svc, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	// The public slot listing is the only unauthenticated endpoint and
	// gets its own rate limit.
	mux.Handle("/api/v1/public/slots", httpx.Chain(
		http.HandlerFunc(apptHandler.Slots),
		publicRateLimit(logger),
	))

	requireAuth := handlers.RequireAuth(jwtSecret)
	authed := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, requireAuth)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, requireAuth, handlers.RequireStaff)
	}

	mux.Handle("/api/v1/appointments", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			apptHandler.Create(w, r)
			return
		}
		apptHandler.List(w, r)
	}))
	mux.Handle("/api/v1/appointments/detail", authed(apptHandler.Detail))
	mux.Handle("/api/v1/appointments/update", authed(apptHandler.Update))
	mux.Handle("/api/v1/appointments/cancel", authed(apptHandler.Cancel))
	mux.Handle("/api/v1/admin/appointments/status", adminOnly(apptHandler.SetStatus))
	mux.Handle("/api/v1/admin/dashboard", adminOnly(apptHandler.Dashboard))
	mux.Handle("/api/v1/admin/schedules", adminOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			schedHandler.Create(w, r)
			return
		}
		schedHandler.List(w, r)
	}))
	mux.Handle("/api/v1/admin/schedules/update", adminOnly(schedHandler.Update))
	mux.Handle("/api/v1/admin/schedules/delete", adminOnly(schedHandler.Delete))

	bodyLimit := int64(1 << 20)
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic-api")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// publicRateLimit picks redis fixed-window limiting when REDIS_ADDR is
// set, an in-memory limiter otherwise.
func publicRateLimit(logger *slog.Logger) httpx.Middleware {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)

	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
		return rl.Middleware(logger, true)
	}

	rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	return rl.Middleware()
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
