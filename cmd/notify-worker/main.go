package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/clinicasonrisas/citas-backend/internal/config"
	"github.com/clinicasonrisas/citas-backend/internal/notify"
	redisclient "github.com/clinicasonrisas/citas-backend/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "notify-worker").Logger()
	if cfg.Env == "dev" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("component", "notify-worker").Logger()
	}
	log.Info().Str("queue", cfg.NotifyQueueKey).Msg("notify-worker starting up")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	queue := notify.NewRedisQueue(rdb, cfg.NotifyQueueKey)
	mailer := &notify.Mailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		FromName: cfg.FromName,
		FromAddr: cfg.FromAddr,
		Log:      log,
	}

	for {
		job, err := queue.Dequeue(ctx, cfg.WorkerPollWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info().Msg("shutting down notify-worker")
				return
			}
			log.Error().Err(err).Msg("dequeue error")
			continue
		}
		if job == nil {
			continue
		}

		if err := mailer.Send(job.Message); err != nil {
			log.Error().
				Err(err).
				Str("job_id", job.ID.String()).
				Str("to", job.Message.To).
				Msg("email delivery failed")
			continue
		}
		log.Info().
			Str("job_id", job.ID.String()).
			Str("to", job.Message.To).
			Str("subject", job.Message.Subject).
			Msg("email delivered")
	}
}
