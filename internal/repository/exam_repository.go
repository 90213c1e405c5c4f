package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/model"
)

const examColumns = `e.id, e.course_id, e.title, e.description, e.duration_minutes,
	e.questions, e.settings, e.is_active, e.created_by, COALESCE(u.name, ''),
	e.created_at, e.updated_at`

// ExamRepository handles exam data access. Questions and settings are
// stored as JSONB on the exam row so a session always reads one snapshot.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.CourseID, &e.Title, &e.Description, &e.DurationMinutes,
		&e.Questions, &e.Settings, &e.IsActive, &e.CreatedBy, &e.CreatedByName,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if e.Questions == nil {
		e.Questions = []model.Question{}
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+`
		 FROM exams e LEFT JOIN users u ON u.id::text = e.created_by
		 WHERE e.id = $1`, id,
	))
}

// ListPaginated retrieves exams, newest first. Pass createdBy="" to list all.
func (r *ExamRepository) ListPaginated(ctx context.Context, createdBy string, limit, offset int) ([]model.Exam, int, error) {
	countQuery := `SELECT COUNT(*) FROM exams e`
	var countArgs []interface{}
	if createdBy != "" {
		countQuery += ` WHERE e.created_by = $1`
		countArgs = append(countArgs, createdBy)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + ` FROM exams e LEFT JOIN users u ON u.id::text = e.created_by`
	var args []interface{}
	argIdx := 1

	if createdBy != "" {
		query += ` WHERE e.created_by = $1`
		args = append(args, createdBy)
		argIdx++
	}

	query += ` ORDER BY e.created_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam together with its first audit log entry.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam, entry *model.ExamLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (course_id, title, description, duration_minutes, questions, settings, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		e.CourseID, e.Title, e.Description, e.DurationMinutes,
		e.Questions, e.Settings, e.IsActive, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}

	entry.ExamID = e.ID
	if err := insertLog(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update replaces an exam's content and appends an audit log entry.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam, entry *model.ExamLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE exams
		 SET course_id = $1, title = $2, description = $3, duration_minutes = $4,
		     questions = $5, settings = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING updated_at`,
		e.CourseID, e.Title, e.Description, e.DurationMinutes,
		e.Questions, e.Settings, e.ID,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return err
	}

	entry.ExamID = e.ID
	if err := insertLog(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetActive flips an exam's availability and appends an audit log entry.
func (r *ExamRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, entry *model.ExamLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exams SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	entry.ExamID = id
	if err := insertLog(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListLogs returns an exam's audit trail, oldest first.
func (r *ExamRepository) ListLogs(ctx context.Context, examID uuid.UUID) ([]model.ExamLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, action, description, performed_by, created_at
		 FROM exam_logs WHERE exam_id = $1
		 ORDER BY created_at ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.ExamLog{}
	for rows.Next() {
		var l model.ExamLog
		if err := rows.Scan(&l.ID, &l.ExamID, &l.Action, &l.Description, &l.PerformedBy, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func insertLog(ctx context.Context, tx pgx.Tx, l *model.ExamLog) error {
	return tx.QueryRow(ctx,
		`INSERT INTO exam_logs (exam_id, action, description, performed_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		l.ExamID, l.Action, l.Description, l.PerformedBy,
	).Scan(&l.ID, &l.Timestamp)
}
