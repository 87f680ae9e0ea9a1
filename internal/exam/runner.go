package exam

import (
	"context"

	"github.com/hireflow/hireflow/internal/stream"
)

// RecordRun satisfies the stream consumer's Recorder: runner-published
// execution results land in the same submission history the direct
// endpoint feeds.
func (s *Service) RecordRun(ctx context.Context, r *stream.RunResult) error {
	return s.RecordCodeRun(ctx, r.SessionID, r.SectionID, r.QuestionID, r.Submission, "runner")
}
