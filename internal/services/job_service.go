package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"booking-system/internal/config"
	"booking-system/internal/database"
	"booking-system/internal/logger"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

// JobService реализует durable-очередь задач поверх PostgreSQL.
// Выдача задачи работает как аренда с visibility timeout: воркер,
// не завершивший задачу за lease, теряет её, и задача выдаётся повторно.
type JobService struct {
	db  *database.DB
	log *logger.Logger
	cfg *config.JobsConfig
}

// NewJobService создаёт сервис очереди задач.
func NewJobService(db *database.DB, log *logger.Logger, cfg *config.JobsConfig) *JobService {
	return &JobService{
		db:  db,
		log: log,
		cfg: cfg,
	}
}

// Enqueue добавляет задачу в очередь с отложенным стартом delay.
func (s *JobService) Enqueue(ctx context.Context, jobType string, payload interface{}, delay time.Duration) (*models.Job, error) {
	return s.enqueue(ctx, s.db.DB, jobType, payload, delay)
}

// EnqueueTx добавляет задачу в рамках транзакции вызывающего:
// задача становится видимой только после COMMIT.
func (s *JobService) EnqueueTx(ctx context.Context, tx *sql.Tx, jobType string, payload interface{}, delay time.Duration) (*models.Job, error) {
	return s.enqueue(ctx, tx, jobType, payload, delay)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *JobService) enqueue(ctx context.Context, q execQuerier, jobType string, payload interface{}, delay time.Duration) (*models.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &models.Job{
		ID:          uuid.New(),
		Queue:       models.DefaultQueue,
		Type:        jobType,
		Payload:     data,
		Attempts:    0,
		MaxAttempts: s.cfg.MaxAttempts,
		AvailableAt: time.Now().Add(delay),
		CreatedAt:   time.Now(),
	}

	query := `
		INSERT INTO jobs (id, queue, type, payload, attempts, max_attempts, available_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := q.ExecContext(ctx, query,
		job.ID, job.Queue, job.Type, job.Payload, job.Attempts, job.MaxAttempts, job.AvailableAt, job.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"type":   job.Type,
	}).Debug("Job enqueued")

	return job, nil
}

// Dequeue арендует одну готовую задачу очереди. FOR UPDATE SKIP LOCKED
// позволяет нескольким воркерам забирать задачи без взаимной блокировки;
// истёкшая аренда делает задачу видимой снова. Счётчик попыток
// увеличивается при выдаче. Возвращает nil, если очередь пуста.
func (s *JobService) Dequeue(ctx context.Context, queue string) (*models.Job, error) {
	lease := time.Duration(s.cfg.LeaseTimeoutSec) * time.Second
	now := time.Now()

	query := `
		UPDATE jobs
		SET reserved_at = $1, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE queue = $2
			  AND available_at <= $1
			  AND (reserved_at IS NULL OR reserved_at < $3)
			ORDER BY available_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, queue, type, payload, attempts, max_attempts, available_at, reserved_at, created_at
	`

	job := &models.Job{}
	err := s.db.QueryRowContext(ctx, query, now, queue, now.Add(-lease)).Scan(
		&job.ID, &job.Queue, &job.Type, &job.Payload, &job.Attempts, &job.MaxAttempts,
		&job.AvailableAt, &job.ReservedAt, &job.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	return job, nil
}

// Complete удаляет успешно выполненную задачу.
func (s *JobService) Complete(ctx context.Context, jobID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// Fail обрабатывает неуспешную попытку: возвращает задачу в очередь
// с экспоненциальной задержкой или, когда попытки исчерпаны,
// переносит её в dead_letter_jobs.
func (s *JobService) Fail(ctx context.Context, job *models.Job, jobErr error) error {
	if job.Attempts >= job.MaxAttempts {
		return s.deadLetter(ctx, job, jobErr.Error())
	}

	delay := s.backoff(job.Attempts)
	query := `
		UPDATE jobs
		SET reserved_at = NULL, available_at = $1
		WHERE id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().Add(delay), job.ID); err != nil {
		return fmt.Errorf("failed to release job: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"type":     job.Type,
		"attempts": job.Attempts,
		"delay":    delay.String(),
	}).Warn("Job failed, released with backoff")

	return nil
}

// DeadLetter переносит задачу в dead_letter_jobs немедленно,
// минуя повторы (постоянные ошибки, ручной разбор).
func (s *JobService) DeadLetter(ctx context.Context, job *models.Job, reason string) error {
	return s.deadLetter(ctx, job, reason)
}

func (s *JobService) deadLetter(ctx context.Context, job *models.Job, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO dead_letter_jobs (id, job_id, queue, type, payload, attempts, last_error, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		uuid.New(), job.ID, job.Queue, job.Type, job.Payload, job.Attempts, reason, time.Now()); err != nil {
		return fmt.Errorf("failed to insert dead letter job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", job.ID); err != nil {
		return fmt.Errorf("failed to delete dead job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"type":   job.Type,
		"reason": reason,
	}).Error("Job moved to dead letter queue")

	return nil
}

// Quarantine кладёт полезную нагрузку сразу в dead_letter_jobs, минуя
// активную очередь: для событий, которые нельзя ни выполнить, ни повторить.
func (s *JobService) Quarantine(ctx context.Context, jobType string, payload interface{}, reason string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal quarantine payload: %w", err)
	}

	query := `
		INSERT INTO dead_letter_jobs (id, job_id, queue, type, payload, attempts, last_error, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.New(), uuid.New(), models.DefaultQueue, jobType, data, 0, reason, time.Now()); err != nil {
		return fmt.Errorf("failed to quarantine payload: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"type":   jobType,
		"reason": reason,
	}).Warn("Payload quarantined to dead letter queue")

	return nil
}

// ListDeadLetters возвращает задачи из dead letter очереди, новые первыми.
func (s *JobService) ListDeadLetters(ctx context.Context, limit int) ([]*models.DeadLetterJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, job_id, queue, type, payload, attempts, last_error, failed_at
		FROM dead_letter_jobs
		ORDER BY failed_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letter jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.DeadLetterJob
	for rows.Next() {
		j := &models.DeadLetterJob{}
		if err := rows.Scan(&j.ID, &j.JobID, &j.Queue, &j.Type, &j.Payload, &j.Attempts, &j.LastError, &j.FailedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter job: %w", err)
		}
		jobs = append(jobs, j)
	}

	return jobs, nil
}

// backoff возвращает задержку перед повтором: base * 2^attempts.
func (s *JobService) backoff(attempts int) time.Duration {
	base := time.Duration(s.cfg.BaseDelaySec) * time.Second
	factor := math.Pow(2, float64(attempts))
	if factor > 1024 {
		factor = 1024
	}
	return time.Duration(float64(base) * factor)
}
