package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lastmile-route-service/internal/domain"
)

// Postgres-backed implementation of the JobStore port. State
// transitions are compare-and-swap UPDATEs guarded on the current
// state, so two workers can never both claim the same job.
type PostgresJobStore struct{ DB *sql.DB }

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{DB: db}
}

func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
	INSERT INTO jobs (id, state, created_at)
	VALUES ($1, $2, $3);
	`
	if _, err := s.DB.ExecContext(ctx, query, job.ID, job.State, job.CreatedAt); err != nil {
		return fmt.Errorf("create job: insert id=%s: %w", job.ID, err)
	}
	return nil
}

func (s *PostgresJobStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	query := `
	SELECT id, state, created_at, completed_at, result, reason
	FROM jobs
	WHERE id = $1;
	`
	var (
		job    domain.Job
		rawRes []byte
		done   sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.State, &job.CreatedAt, &done, &rawRes, &job.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: query id=%s: %w", id, err)
	}

	if done.Valid {
		t := done.Time
		job.CompletedAt = &t
	}
	if len(rawRes) > 0 {
		var res domain.OptimizeResult
		if err := json.Unmarshal(rawRes, &res); err != nil {
			return nil, fmt.Errorf("get job: decode result id=%s: %w", id, err)
		}
		job.Result = &res
	}

	return &job, nil
}

// StartJob claims a queued job. Returns false when another worker got
// there first or the job is terminal.
func (s *PostgresJobStore) StartJob(ctx context.Context, id string) (bool, error) {
	query := `
	UPDATE jobs
	SET state = $1
	WHERE id = $2 AND state = $3;
	`
	res, err := s.DB.ExecContext(ctx, query, domain.JobRunning, id, domain.JobQueued)
	if err != nil {
		return false, fmt.Errorf("start job: update id=%s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("start job: rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresJobStore) CompleteJob(ctx context.Context, id string, result *domain.OptimizeResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("complete job: encode result id=%s: %w", id, err)
	}

	query := `
	UPDATE jobs
	SET state = $1, completed_at = now(), result = $2
	WHERE id = $3 AND state = $4;
	`
	res, err := s.DB.ExecContext(ctx, query, domain.JobDone, raw, id, domain.JobRunning)
	if err != nil {
		return fmt.Errorf("complete job: update id=%s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete job: job %s is not running", id)
	}
	return nil
}

// FailJob also accepts queued jobs: a job rejected by a full queue
// fails without ever running.
func (s *PostgresJobStore) FailJob(ctx context.Context, id string, reason string) error {
	query := `
	UPDATE jobs
	SET state = $1, completed_at = now(), reason = $2
	WHERE id = $3 AND state IN ($4, $5);
	`
	res, err := s.DB.ExecContext(ctx, query, domain.JobFailed, reason, id, domain.JobQueued, domain.JobRunning)
	if err != nil {
		return fmt.Errorf("fail job: update id=%s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail job: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("fail job: job %s is already terminal", id)
	}
	return nil
}
