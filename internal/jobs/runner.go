// Package jobs содержит воркеры durable-очереди: опрос, диспатч по типу
// задачи и обработчики фоновых операций.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booking-system/internal/apperror"
	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/services"
)

// Handler обрабатывает одну задачу очереди.
type Handler func(ctx context.Context, job *models.Job) error

// Runner опрашивает очередь и раздаёт задачи зарегистрированным
// обработчикам. Несколько воркеров конкурируют за задачи безопасно:
// аренда выдаётся через SKIP LOCKED на стороне очереди.
type Runner struct {
	jobs     *services.JobService
	log      *logger.Logger
	cfg      *config.JobsConfig
	handlers map[string]Handler
	mu       sync.RWMutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRunner создаёт runner очереди задач.
func NewRunner(jobService *services.JobService, log *logger.Logger, cfg *config.JobsConfig) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		jobs:     jobService,
		log:      log,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register регистрирует обработчик для типа задачи.
func (r *Runner) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Handler возвращает зарегистрированный обработчик.
func (r *Runner) Handler(jobType string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[jobType]
}

// Start запускает воркеры.
func (r *Runner) Start() {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.log.WithField("workers", workers).Info("Job runner started")
}

// Stop останавливает воркеры и дожидается завершения текущих задач.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	r.log.Info("Job runner stopped")
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	interval := time.Duration(r.cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Выгребаем всё доступное, потом ждём следующий тик.
		for {
			job, err := r.jobs.Dequeue(r.ctx, models.DefaultQueue)
			if err != nil {
				if r.ctx.Err() != nil {
					return
				}
				r.log.WithError(err).Error("Failed to dequeue job")
				break
			}
			if job == nil {
				break
			}
			r.process(job)
		}

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// process выполняет задачу и закрывает её исход: при успехе задача
// удаляется, при транзиентной ошибке возвращается в очередь с backoff,
// при постоянной уходит в dead letter.
func (r *Runner) process(job *models.Job) {
	handler := r.Handler(job.Type)
	if handler == nil {
		if err := r.jobs.DeadLetter(r.ctx, job, fmt.Sprintf("no handler registered for type %s", job.Type)); err != nil {
			r.log.WithError(err).WithField("job_id", job.ID).Error("Failed to dead letter job")
		}
		return
	}

	if err := handler(r.ctx, job); err != nil {
		if isPermanent(err) {
			if dlErr := r.jobs.DeadLetter(r.ctx, job, err.Error()); dlErr != nil {
				r.log.WithError(dlErr).WithField("job_id", job.ID).Error("Failed to dead letter job")
			}
			return
		}
		if failErr := r.jobs.Fail(r.ctx, job, err); failErr != nil {
			r.log.WithError(failErr).WithField("job_id", job.ID).Error("Failed to release job")
		}
		return
	}

	if err := r.jobs.Complete(r.ctx, job.ID); err != nil {
		r.log.WithError(err).WithField("job_id", job.ID).Error("Failed to complete job")
	}
}

// isPermanent сообщает, что повтор задачи не имеет смысла.
func isPermanent(err error) bool {
	return apperror.Is(err, apperror.KindProviderPermanent) ||
		apperror.Is(err, apperror.KindValidation) ||
		apperror.Is(err, apperror.KindConflict) ||
		apperror.Is(err, apperror.KindLedgerIntegrity)
}
