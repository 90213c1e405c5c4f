package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-portal/internal/model"
)

// DashboardRepository handles staff dashboard aggregates.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// DashboardCounts are the headline numbers on the staff dashboard.
type DashboardCounts struct {
	TotalStudents   int `json:"total_students"`
	TotalExams      int `json:"total_exams"`
	ActiveExams     int `json:"active_exams"`
	TotalResults    int `json:"total_results"`
	ResultsToday    int `json:"results_today"`
	ViolationsToday int `json:"violations_today"`
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (*DashboardCounts, error) {
	c := &DashboardCounts{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users WHERE role = $1),
			(SELECT COUNT(*) FROM exams),
			(SELECT COUNT(*) FROM exams WHERE is_active),
			(SELECT COUNT(*) FROM exam_results),
			(SELECT COUNT(*) FROM exam_results WHERE submitted_at >= date_trunc('day', NOW())),
			(SELECT COUNT(*) FROM exam_violations WHERE recorded_at >= date_trunc('day', NOW()))`,
		model.RoleStudent,
	).Scan(&c.TotalStudents, &c.TotalExams, &c.ActiveExams, &c.TotalResults, &c.ResultsToday, &c.ViolationsToday)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DashboardExamActivity summarizes submissions for one exam.
type DashboardExamActivity struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	IsActive         bool       `json:"is_active"`
	ParticipantCount int        `json:"participant_count"`
	AverageScore     *float64   `json:"average_score"`
	AverageMaxScore  *float64   `json:"average_max_score"`
	LastSubmittedAt  *time.Time `json:"last_submitted_at"`
}

// GetRecentActivity returns the exams with the most recent submissions.
func (r *DashboardRepository) GetRecentActivity(ctx context.Context, limit int) ([]DashboardExamActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			e.id,
			e.title,
			e.is_active,
			COUNT(res.id)        AS participant_count,
			AVG(res.total_score) AS average_score,
			AVG(res.max_score)   AS average_max_score,
			MAX(res.submitted_at) AS last_submitted_at
		FROM exams e
		JOIN exam_results res ON res.exam_id = e.id
		GROUP BY e.id, e.title, e.is_active
		ORDER BY last_submitted_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activity := []DashboardExamActivity{}
	for rows.Next() {
		var a DashboardExamActivity
		if err := rows.Scan(&a.ID, &a.Title, &a.IsActive, &a.ParticipantCount,
			&a.AverageScore, &a.AverageMaxScore, &a.LastSubmittedAt); err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
