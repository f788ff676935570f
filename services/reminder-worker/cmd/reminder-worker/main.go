package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinicore/dentbook/libs/config"
	"github.com/clinicore/dentbook/libs/db"
	"github.com/clinicore/dentbook/libs/httpx"
	"github.com/clinicore/dentbook/libs/kafkax"
	otelx "github.com/clinicore/dentbook/libs/otel"
	"github.com/clinicore/dentbook/libs/outbox"
	"github.com/clinicore/dentbook/libs/runtime"
	"github.com/clinicore/dentbook/services/reminder-worker/internal/consumer"
	"github.com/clinicore/dentbook/services/reminder-worker/internal/inbox"
	"github.com/clinicore/dentbook/services/reminder-worker/internal/jobs"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "reminder-worker")
	port, err := config.Port("PORT", "8081")
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

	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	jobRepo := jobs.NewRepository()
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	offsets := config.MinuteOffsets("REMINDER_OFFSETS_MINUTES", "1440,60")
	jobWorker := jobs.NewWorker(pool, jobRepo, outboxRepo, logger, jobs.WorkerConfig{
		Interval:  2 * time.Second,
		BatchSize: 50,
		Backoff:   time.Duration(config.Int("REMINDER_BACKOFF_SECONDS", 60)) * time.Second,
	})
	go jobWorker.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "reminder-worker")

	decode := func(msg kafka.Message) (jobs.AppointmentEvent, bool) {
		var ev jobs.AppointmentEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Error("invalid appointment event", "err", err, "topic", msg.Topic)
			return jobs.AppointmentEvent{}, false
		}
		if ev.AppointmentID == "" {
			logger.Error("appointment event missing id", "topic", msg.Topic)
			return jobs.AppointmentEvent{}, false
		}
		return ev, true
	}

	scheduleJobs := func(ctx context.Context, ev jobs.AppointmentEvent) error {
		jobList, err := jobs.JobsFor(ev, offsets, time.Now().UTC())
		if err != nil {
			logger.Error("cannot schedule reminders", "err", err, "appointment_id", ev.AppointmentID)
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		for _, job := range jobList {
			if err := jobRepo.Insert(ctx, tx, job); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	}

	// appointment.booked schedules reminders for the new booking.
	bookedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers, GroupID: groupID,
		Topic: config.String("KAFKA_TOPIC_BOOKED", "appointment.booked"),
	}, func(ctx context.Context, msg kafka.Message) error {
		ev, ok := decode(msg)
		if !ok {
			return nil
		}
		return scheduleJobs(ctx, ev)
	})
	go bookedConsumer.Run(ctx)

	// appointment.cancelled drops the pending reminders.
	cancelledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers, GroupID: groupID,
		Topic: config.String("KAFKA_TOPIC_CANCELLED", "appointment.cancelled"),
	}, func(ctx context.Context, msg kafka.Message) error {
		ev, ok := decode(msg)
		if !ok {
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if err := jobRepo.CancelForAppointment(ctx, tx, ev.AppointmentID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go cancelledConsumer.Run(ctx)

	// appointment.rescheduled cancels the old reminders and schedules
	// fresh ones against the new start time.
	rescheduledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers, GroupID: groupID,
		Topic: config.String("KAFKA_TOPIC_RESCHEDULED", "appointment.rescheduled"),
	}, func(ctx context.Context, msg kafka.Message) error {
		ev, ok := decode(msg)
		if !ok {
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		if err := jobRepo.CancelForAppointment(ctx, tx, ev.AppointmentID); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		return scheduleJobs(ctx, ev)
	})
	go rescheduledConsumer.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "reminder-worker")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
