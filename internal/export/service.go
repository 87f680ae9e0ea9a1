package export

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/hireflow/hireflow/internal/metrics"
	"github.com/hireflow/hireflow/internal/models"
	"github.com/hireflow/hireflow/internal/worker"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// ApplicantSource reads the two upstream applicant collections.
type ApplicantSource interface {
	GetCandidatesByIDs(ctx context.Context, ids []string) ([]bson.M, error)
	GetStudentsByIDs(ctx context.Context, ids []string) ([]bson.M, error)
}

// Service builds applicant export workbooks. Candidate documents take
// precedence; ids not found there are resolved against students.
type Service struct {
	applicants ApplicantSource
	docs       *DocumentClient // nil disables enrichment
	pool       *worker.Pool
}

func NewService(applicants ApplicantSource, docs *DocumentClient, pool *worker.Pool) *Service {
	return &Service{
		applicants: applicants,
		docs:       docs,
		pool:       pool,
	}
}

// Export fetches the requested applicants from both collections,
// normalizes them into canonical rows, enriches document links, and
// returns the rendered .xlsx bytes.
func (s *Service) Export(ctx context.Context, ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no applicant ids given")
	}

	records, err := s.collect(ctx, ids)
	if err != nil {
		metrics.Exports.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(records) == 0 {
		metrics.Exports.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("no applicants found for given ids")
	}

	s.enrich(ctx, records)

	f, err := BuildWorkbook(records)
	if err != nil {
		metrics.Exports.WithLabelValues("error").Inc()
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		metrics.Exports.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	metrics.Exports.WithLabelValues("ok").Inc()
	return buf.Bytes(), nil
}

func (s *Service) collect(ctx context.Context, ids []string) ([]models.ApplicantRecord, error) {
	candidates, err := s.applicants.GetCandidatesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]models.ApplicantRecord, 0, len(ids))
	seen := make(map[string]bool, len(candidates))
	for _, doc := range candidates {
		record := FromCandidateDoc(doc)
		records = append(records, record)
		seen[record.SourceID] = true
	}

	var remaining []string
	for _, id := range ids {
		if !seen[id] {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == 0 {
		return records, nil
	}

	students, err := s.applicants.GetStudentsByIDs(ctx, remaining)
	if err != nil {
		return nil, err
	}
	for _, doc := range students {
		records = append(records, FromStudentDoc(doc))
	}

	return records, nil
}

// enrichJob fetches document links for one record on the worker pool.
type enrichJob struct {
	docs   *DocumentClient
	record *models.ApplicantRecord
	wg     *sync.WaitGroup
}

func (j *enrichJob) Execute(ctx context.Context) error {
	defer j.wg.Done()

	links, err := j.docs.Fetch(ctx, j.record.SourceID)
	if err != nil {
		// Enrichment is best-effort; rows keep whatever the upstream
		// collection already carried.
		log.Warn().Err(err).Str("applicantId", j.record.SourceID).Msg("Document enrichment failed")
		return nil
	}

	if links.ResumeURL != "" {
		j.record.ResumeURL = links.ResumeURL
	}
	if links.IDProofURL != "" {
		j.record.IDProofURL = links.IDProofURL
	}
	if links.PhotoURL != "" {
		j.record.PhotoURL = links.PhotoURL
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, records []models.ApplicantRecord) {
	if s.docs == nil || s.pool == nil {
		return
	}

	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		job := &enrichJob{docs: s.docs, record: &records[i], wg: &wg}
		if err := s.pool.Submit(job); err != nil {
			wg.Done()
			log.Warn().Err(err).Msg("Failed to enqueue enrichment job")
		}
	}
	wg.Wait()
}
