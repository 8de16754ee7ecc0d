// Package store persists search results in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jimezsa/jobharvest/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	site           TEXT NOT NULL,
	id             TEXT NOT NULL,
	title          TEXT NOT NULL,
	company        TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	job_types      TEXT[] NOT NULL DEFAULT '{}',
	date_posted    DATE,
	job_url        TEXT NOT NULL DEFAULT '',
	job_url_direct TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	pay_interval   TEXT,
	min_amount     DOUBLE PRECISION,
	max_amount     DOUBLE PRECISION,
	currency       TEXT,
	is_remote      BOOLEAN NOT NULL DEFAULT FALSE,
	emails         TEXT[] NOT NULL DEFAULT '{}',
	first_seen     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (site, id)
)`

const upsertJob = `
INSERT INTO jobs (site, id, title, company, city, state, country, job_types, date_posted,
	job_url, job_url_direct, description, pay_interval, min_amount, max_amount, currency,
	is_remote, emails)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (site, id) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	country = EXCLUDED.country,
	job_types = EXCLUDED.job_types,
	date_posted = COALESCE(EXCLUDED.date_posted, jobs.date_posted),
	job_url = EXCLUDED.job_url,
	job_url_direct = EXCLUDED.job_url_direct,
	description = CASE WHEN EXCLUDED.description = '' THEN jobs.description ELSE EXCLUDED.description END,
	pay_interval = EXCLUDED.pay_interval,
	min_amount = EXCLUDED.min_amount,
	max_amount = EXCLUDED.max_amount,
	currency = EXCLUDED.currency,
	is_remote = EXCLUDED.is_remote,
	emails = EXCLUDED.emails,
	last_seen = NOW()`

const selectRecent = `
SELECT site, id, title, company, city, state, country, job_types, date_posted, job_url,
	job_url_direct, description, pay_interval, min_amount, max_amount, currency, is_remote, emails
FROM jobs
WHERE ($1 = '' OR site = $1)
ORDER BY last_seen DESC, date_posted DESC NULLS LAST
LIMIT $2`

// Store is a Postgres backed job sink.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, verifies the connection and creates the jobs table.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveJobs upserts jobs keyed by (site, id) in one batch.
func (s *Store) SaveJobs(ctx context.Context, jobs []models.Job) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, job := range jobs {
		batch.Queue(upsertJob, jobArgs(job)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range jobs {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to save job %s: %w", jobs[i].ID, err)
		}
	}
	return len(jobs), nil
}

// RecentJobs returns the most recently seen jobs, optionally for one site.
func (s *Store) RecentJobs(ctx context.Context, site models.Site, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = models.DefaultResultsWanted
	}
	rows, err := s.pool.Query(ctx, selectRecent, string(site), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func jobArgs(job models.Job) []any {
	types := make([]string, 0, len(job.JobTypes))
	for _, jt := range job.JobTypes {
		types = append(types, string(jt))
	}
	emails := job.Emails
	if emails == nil {
		emails = []string{}
	}

	var posted *time.Time
	if job.DatePosted != nil {
		posted = &job.DatePosted.Time
	}
	var (
		interval, currency   *string
		minAmount, maxAmount *float64
	)
	if comp := job.Compensation; comp != nil {
		iv := string(comp.Interval)
		interval, currency = &iv, &comp.Currency
		minAmount, maxAmount = &comp.MinAmount, &comp.MaxAmount
	}

	return []any{
		string(job.Site), job.ID, job.Title, job.Company,
		job.Location.City, job.Location.State, job.Location.Country,
		types, posted, job.URL, job.DirectURL, job.Description,
		interval, minAmount, maxAmount, currency,
		job.Remote, emails,
	}
}

func scanJob(row pgx.Row) (models.Job, error) {
	var (
		job                  models.Job
		site                 string
		types                []string
		posted               *time.Time
		interval, currency   *string
		minAmount, maxAmount *float64
	)
	err := row.Scan(
		&site, &job.ID, &job.Title, &job.Company,
		&job.Location.City, &job.Location.State, &job.Location.Country,
		&types, &posted, &job.URL, &job.DirectURL, &job.Description,
		&interval, &minAmount, &maxAmount, &currency,
		&job.Remote, &job.Emails,
	)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to scan job: %w", err)
	}
	job.Site = models.Site(site)
	for _, t := range types {
		job.JobTypes = append(job.JobTypes, models.JobType(t))
	}
	if posted != nil {
		job.DatePosted = models.NewDate(*posted)
	}
	if interval != nil && currency != nil && minAmount != nil && maxAmount != nil {
		job.Compensation = &models.Compensation{
			Interval:  models.Interval(*interval),
			MinAmount: *minAmount,
			MaxAmount: *maxAmount,
			Currency:  *currency,
		}
	}
	return job, nil
}
