// janitor.go — фоновая очистка истёкших refresh token.
//
// TokenJanitor запускает горутину с ticker (TOKEN_FLUSH_INTERVAL),
// которая удаляет outstanding_token с истёкшим exp вместе с записями
// blacklisted_token.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tokensFlushedTotal — количество удалённых истёкших refresh token.
var tokensFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sd_tokens_flushed_total",
	Help: "Количество удалённых истёкших refresh token.",
})

// TokenFlusher — источник очистки (AuthService).
type TokenFlusher interface {
	FlushExpired(ctx context.Context) (int64, error)
}

// TokenJanitor — фоновый сервис очистки токенов.
type TokenJanitor struct {
	flusher  TokenFlusher
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTokenJanitor создаёт сервис очистки.
func NewTokenJanitor(flusher TokenFlusher, interval time.Duration, logger *slog.Logger) *TokenJanitor {
	return &TokenJanitor{
		flusher:  flusher,
		interval: interval,
		logger:   logger.With(slog.String("component", "token_janitor")),
	}
}

// Start запускает фоновую горутину с периодической очисткой.
// Неположительный интервал отключает периодическую очистку.
func (j *TokenJanitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Warn("Периодическая очистка токенов отключена: интервал должен быть положительным",
			slog.String("interval", j.interval.String()),
		)
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)

		j.logger.Info("Периодическая очистка токенов запущена",
			slog.String("interval", j.interval.String()),
		)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Info("Периодическая очистка токенов остановлена")
				return
			case <-ticker.C:
				j.FlushNow(ctx)
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (j *TokenJanitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	if j.done != nil {
		<-j.done
	}
}

// FlushNow выполняет очистку немедленно.
func (j *TokenJanitor) FlushNow(ctx context.Context) int64 {
	n, err := j.flusher.FlushExpired(ctx)
	if err != nil {
		j.logger.Error("Ошибка очистки истёкших токенов", slog.String("error", err.Error()))
		return 0
	}
	tokensFlushedTotal.Add(float64(n))
	if n > 0 {
		j.logger.Info("Истёкшие токены удалены", slog.Int64("count", n))
	}
	return n
}
