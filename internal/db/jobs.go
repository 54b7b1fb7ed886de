package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apflow/invoice-match-service/internal/models"
	"github.com/apflow/invoice-match-service/internal/pipeline"
)

// Job statuses.
const (
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// JobRepo persists extraction jobs and their per-invoice results.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo creates a repository over the given pool.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create records a new job in PROCESSING state and returns it.
func (r *JobRepo) Create(ctx context.Context, filename, fileType, aiService string) (*models.ExtractionJob, error) {
	job := &models.ExtractionJob{
		ID:               uuid.New(),
		OriginalFilename: filename,
		FileType:         fileType,
		Status:           JobStatusProcessing,
		AIServiceUsed:    aiService,
		CreatedAt:        time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO extraction_jobs (id, original_filename, file_type, status, ai_service_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.OriginalFilename, job.FileType, job.Status, job.AIServiceUsed, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating extraction job: %w", err)
	}
	return job, nil
}

// Complete marks a job COMPLETED with its timing and archived document URL.
func (r *JobRepo) Complete(ctx context.Context, jobID uuid.UUID, documentURL string, processingSeconds float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE extraction_jobs
		SET status = $2, document_url = $3, processing_time_seconds = $4, processed_at = $5
		WHERE id = $1`,
		jobID, JobStatusCompleted, documentURL, processingSeconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("completing extraction job %s: %w", jobID, err)
	}
	return nil
}

// Fail marks a job FAILED with the error message.
func (r *JobRepo) Fail(ctx context.Context, jobID uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE extraction_jobs
		SET status = $2, error_message = $3, processed_at = $4
		WHERE id = $1`,
		jobID, JobStatusFailed, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failing extraction job %s: %w", jobID, err)
	}
	return nil
}

// SaveResults stores one row per processed invoice, with the full result as
// JSONB so the reconciliation detail survives schema evolution.
func (r *JobRepo) SaveResults(ctx context.Context, jobID uuid.UUID, results []pipeline.Result) error {
	for _, result := range results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding result for invoice %s: %w", result.InvoiceNumber, err)
		}

		matchedPO := ""
		overall := ""
		if result.Matching.MatchedPO != nil {
			matchedPO = result.Matching.MatchedPO.PONumber
		}
		if result.Matching.DataComparison != nil {
			overall = result.Matching.DataComparison.Overall.String()
		}

		_, err = r.pool.Exec(ctx, `
			INSERT INTO extracted_invoices
				(id, job_id, invoice_number, po_number, matched_po_number, match_confidence, match_type, overall_status, result, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New(), jobID, result.InvoiceNumber, result.PONumber,
			matchedPO, result.Matching.MatchConfidence, result.Matching.MatchType,
			overall, payload, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("saving result for invoice %s: %w", result.InvoiceNumber, err)
		}
	}
	return nil
}

// RecentResults returns the most recently stored invoice results, newest
// first.
func (r *JobRepo) RecentResults(ctx context.Context, limit int) ([]pipeline.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT result FROM extracted_invoices
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent results: %w", err)
	}
	defer rows.Close()

	var results []pipeline.Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		var result pipeline.Result
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decoding stored result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
