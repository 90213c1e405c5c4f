package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/model"
)

// ResultColumns is the column order used by Insert and the bulk COPY path.
var ResultColumns = []string{
	"id", "exam_id", "student_id", "student_name", "answers",
	"total_score", "max_score", "submitted_at", "violation_count", "submit_reason",
}

// ResultRow flattens a result into ResultColumns order.
func ResultRow(res *model.ExamResult) []interface{} {
	return []interface{}{
		res.ID, res.ExamID, res.StudentID, res.StudentName, res.Answers,
		res.TotalScore, res.MaxScore, res.SubmittedAt, res.ViolationCount, res.SubmitReason,
	}
}

const summaryColumns = `r.id, r.exam_id, COALESCE(e.title, ''), r.student_id, r.student_name,
	r.total_score, r.max_score, r.submitted_at, r.violation_count`

// ResultRepository handles exam result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert writes one result. A result whose ID already exists is ignored.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results (id, exam_id, student_id, student_name, answers,
		                           total_score, max_score, submitted_at, violation_count, submit_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		ResultRow(res)...)
	return err
}

// BulkInsert copies a batch of results in one round trip.
func (r *ResultRepository) BulkInsert(ctx context.Context, results []*model.ExamResult) (int64, error) {
	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_results"},
		ResultColumns,
		pgx.CopyFromSlice(len(results), func(i int) ([]interface{}, error) {
			return ResultRow(results[i]), nil
		}),
	)
}

// GetByID retrieves a full result including graded answers.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, student_name, answers,
		        total_score, max_score, submitted_at, violation_count, submit_reason
		 FROM exam_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.ExamID, &res.StudentID, &res.StudentName, &res.Answers,
		&res.TotalScore, &res.MaxScore, &res.SubmittedAt, &res.ViolationCount, &res.SubmitReason)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateGrades stores amended answers and the recomputed total.
// MaxScore and identity columns are never touched.
func (r *ResultRepository) UpdateGrades(ctx context.Context, res *model.ExamResult) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_results SET answers = $1, total_score = $2, updated_at = NOW()
		 WHERE id = $3`,
		res.Answers, res.TotalScore, res.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByExam retrieves result summaries for one exam with pagination.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ResultSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM exam_results r LEFT JOIN exams e ON e.id = r.exam_id
		 WHERE r.exam_id = $1
		 ORDER BY r.submitted_at DESC
		 LIMIT $2 OFFSET $3`, examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanSummaries(rows)
	return out, total, err
}

// ListAllByExam returns every summary for an exam, oldest first. Used by exports.
func (r *ResultRepository) ListAllByExam(ctx context.Context, examID uuid.UUID) ([]model.ResultSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM exam_results r LEFT JOIN exams e ON e.id = r.exam_id
		 WHERE r.exam_id = $1
		 ORDER BY r.submitted_at ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListByStudent returns a student's own results, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]model.ResultSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE student_id = $1`, studentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM exam_results r LEFT JOIN exams e ON e.id = r.exam_id
		 WHERE r.student_id = $1
		 ORDER BY r.submitted_at DESC
		 LIMIT $2 OFFSET $3`, studentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanSummaries(rows)
	return out, total, err
}

func scanSummaries(rows pgx.Rows) ([]model.ResultSummary, error) {
	out := []model.ResultSummary{}
	for rows.Next() {
		var s model.ResultSummary
		if err := rows.Scan(&s.ID, &s.ExamID, &s.ExamTitle, &s.StudentID, &s.StudentName,
			&s.TotalScore, &s.MaxScore, &s.SubmittedAt, &s.ViolationCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountByExam returns how many results an exam has.
func (r *ResultRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`, examID,
	).Scan(&total)
	return total, err
}
