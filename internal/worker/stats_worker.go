package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kamleshbhati477/exam-helper/internal/config"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/kamleshbhati477/exam-helper/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const statsPollTimeout = 1 * time.Second

// StatsWorker drains completed attempt results from the Redis queue and
// folds them into exam statistics, in arrival order, one at a time. After
// every successful update it publishes the fresh statistics for any
// connected live monitors.
type StatsWorker struct {
	stats *service.StatisticsService
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(stats *service.StatisticsService, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		stats: stats,
		rdb:   rdb,
		log:   log.With().Str("component", "stats_worker").Logger(),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("StatsWorker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, statsPollTimeout, config.WorkerKey.AttemptResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			w.process(ctx, []byte(item[1]))
		}
	}
}

func (w *StatsWorker) process(ctx context.Context, raw []byte) {
	var res model.AttemptResult
	if err := json.Unmarshal(raw, &res); err != nil {
		w.log.Error().Err(err).Msg("Invalid attempt payload, dropping")
		return
	}

	st, err := w.stats.RecordAttempt(ctx, res.ExamID, res)
	if err != nil {
		w.log.Error().Err(err).Str("exam_id", res.ExamID.String()).Msg("RecordAttempt failed — requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.AttemptResultsQueue, raw)
		return
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	w.rdb.Publish(ctx, config.CacheKey.ExamStatsChannel(res.ExamID.String()), payload)
}
