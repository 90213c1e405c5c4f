package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/events"
	"github.com/stemsi/exam-portal/internal/export"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/storage"
)

// ResultQueries is the read side of the results table.
type ResultQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ResultSummary, int, error)
	ListAllByExam(ctx context.Context, examID uuid.UUID) ([]model.ResultSummary, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]model.ResultSummary, int, error)
}

// ResultService serves result listings, manual re-grading and exports.
type ResultService struct {
	queries   ResultQueries
	store     ResultStore
	catalog   *i18n.Catalog
	archiver  storage.Archiver
	publisher events.Publisher
	log       zerolog.Logger
}

// NewResultService creates a new ResultService. archiver and publisher may be nil.
func NewResultService(
	queries ResultQueries,
	store ResultStore,
	catalog *i18n.Catalog,
	archiver storage.Archiver,
	publisher events.Publisher,
	log zerolog.Logger,
) *ResultService {
	return &ResultService{
		queries:   queries,
		store:     store,
		catalog:   catalog,
		archiver:  archiver,
		publisher: publisher,
		log:       log.With().Str("component", "result_service").Logger(),
	}
}

// GetByID retrieves one result.
func (s *ResultService) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	res, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByExam lists result summaries for one exam.
func (s *ResultService) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.ResultSummary, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	rows, total, err := s.queries.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return rows, response.NewPagination(page, perPage, total), nil
}

// ListOwn lists the caller's own results.
func (s *ResultService) ListOwn(ctx context.Context, studentID string, page, perPage int) ([]model.ResultSummary, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)
	rows, total, err := s.queries.ListByStudent(ctx, studentID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return rows, response.NewPagination(page, perPage, total), nil
}

// Regrade applies manual scores and feedback to a result. Each edited
// question must belong to the result and its score must lie within the points
// recorded when the result was graded, so later edits to the exam do not
// affect it. TotalScore is recomputed; MaxScore and IsAutoGraded never change.
func (s *ResultService) Regrade(ctx context.Context, id uuid.UUID, req *model.RegradeRequest) (*model.ExamResult, error) {
	res, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := applyGrades(res.Answers, req.Answers)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.AmendResult(ctx, id, answers)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("result_id", id.String()).
		Float64("old_total", res.TotalScore).
		Float64("new_total", updated.TotalScore).
		Msg("Result re-graded")

	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, events.NewResultEvent(events.EventResultAmended, updated)); err != nil {
			s.log.Warn().Err(err).Str("result_id", id.String()).Msg("Failed to publish amended event")
		}
	}
	return updated, nil
}

// applyGrades returns a copy of answers with the edits applied. Omitted
// feedback keeps the previous text; an empty string clears it.
func applyGrades(answers []model.GradedAnswer, edits []model.GradeAnswerRequest) ([]model.GradedAnswer, error) {
	out := make([]model.GradedAnswer, len(answers))
	copy(out, answers)

	index := make(map[uuid.UUID]int, len(out))
	for i, a := range out {
		index[a.QuestionID] = i
	}

	for _, e := range edits {
		i, ok := index[e.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotInExam, e.QuestionID)
		}
		if e.Score < 0 || e.Score > out[i].Points {
			return nil, fmt.Errorf("%w: %s allows 0 to %g", ErrScoreOutOfRange, e.QuestionID, out[i].Points)
		}
		out[i].Score = e.Score
		if e.Feedback != nil {
			out[i].Feedback = *e.Feedback
		}
	}
	return out, nil
}

// Export renders every result of an exam as an .xlsx workbook. When an
// archiver is configured, a copy is stored; archive failures are logged only.
func (s *ResultService) Export(ctx context.Context, examID uuid.UUID) ([]byte, string, error) {
	rows, err := s.queries.ListAllByExam(ctx, examID)
	if err != nil {
		return nil, "", fmt.Errorf("list results: %w", err)
	}

	sheet, columns := s.catalog.ExportHeaders()
	data, err := export.ResultsWorkbook(export.Headers{Sheet: sheet, Columns: columns}, rows)
	if err != nil {
		return nil, "", err
	}

	name := export.FileName(examID.String(), time.Now())
	if s.archiver != nil {
		if path, err := s.archiver.Put(ctx, name, data, export.ContentTypeXLSX); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to archive export")
		} else {
			s.log.Info().Str("path", path).Int("rows", len(rows)).Msg("Export archived")
		}
	}
	return data, name, nil
}
