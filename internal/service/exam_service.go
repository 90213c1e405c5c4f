package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/response"
)

// ExamService handles exam authoring and the audit trail.
type ExamService struct {
	examRepo *repository.ExamRepository
	cache    *CachedExamStore
	catalog  *i18n.Catalog
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	cache *CachedExamStore,
	catalog *i18n.Catalog,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		cache:    cache,
		catalog:  catalog,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam with its audit logs.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	logs, err := s.examRepo.ListLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list exam logs: %w", err)
	}
	exam.Logs = logs
	return exam, nil
}

// List retrieves exams with pagination.
func (s *ExamService) List(ctx context.Context, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	exams, total, err := s.examRepo.ListPaginated(ctx, "", perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Create stores a new, active exam and logs its creation.
func (s *ExamService) Create(ctx context.Context, claims *Claims, req *model.UpsertExamRequest) (*model.Exam, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		CourseID:        req.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Questions:       questions,
		Settings:        req.Settings,
		IsActive:        true,
		CreatedBy:       actorID(claims),
		CreatedByName:   s.actorName(claims),
	}

	entry := &model.ExamLog{
		Action:      model.ExamLogCreated,
		Description: s.catalog.T("LogCreated"),
		PerformedBy: s.actorName(claims),
	}
	if err := s.examRepo.Create(ctx, exam, entry); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	exam.Logs = []model.ExamLog{*entry}

	s.log.Info().Str("exam_id", exam.ID.String()).Str("by", entry.PerformedBy).Msg("Exam created")
	return exam, nil
}

// Update replaces an exam's content. Activation is left unchanged.
func (s *ExamService) Update(ctx context.Context, claims *Claims, id uuid.UUID, req *model.UpsertExamRequest) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exam.CourseID = req.CourseID
	exam.Title = req.Title
	exam.Description = req.Description
	exam.DurationMinutes = req.DurationMinutes
	exam.Questions = questions
	exam.Settings = req.Settings

	entry := &model.ExamLog{
		Action:      model.ExamLogUpdated,
		Description: s.catalog.T("LogUpdated"),
		PerformedBy: s.actorName(claims),
	}
	if err := s.examRepo.Update(ctx, exam, entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("update exam: %w", err)
	}
	exam.Logs = append(exam.Logs, *entry)

	s.invalidate(ctx, id)
	return exam, nil
}

// ToggleStatus flips IsActive and appends a STATUS_CHANGE log.
func (s *ExamService) ToggleStatus(ctx context.Context, claims *Claims, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	active := !exam.IsActive
	entry := &model.ExamLog{
		Action:      model.ExamLogStatusChange,
		Description: s.catalog.StatusChanged(active),
		PerformedBy: s.actorName(claims),
	}
	if err := s.examRepo.SetActive(ctx, id, active, entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("set exam status: %w", err)
	}
	exam.IsActive = active
	exam.Logs = append(exam.Logs, *entry)

	s.log.Info().
		Str("exam_id", id.String()).
		Bool("active", active).
		Str("by", entry.PerformedBy).
		Msg("Exam status changed")

	s.invalidate(ctx, id)
	return exam, nil
}

func (s *ExamService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to invalidate exam cache")
	}
}

func (s *ExamService) actorName(claims *Claims) string {
	if claims == nil || claims.Name == "" {
		return s.catalog.T("UnknownActor")
	}
	return claims.Name
}

func actorID(claims *Claims) string {
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// buildQuestions converts and checks authored questions.
func buildQuestions(reqs []model.UpsertQuestionRequest) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(reqs))
	seen := make(map[uuid.UUID]struct{}, len(reqs))
	for i, r := range reqs {
		q := r.ToQuestion()
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id at question %d", ErrInvalidQuestion, i+1)
		}
		seen[q.ID] = struct{}{}

		if q.IsMultipleChoice() {
			if len(q.Options) < 2 {
				return nil, fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuestion, i+1)
			}
			if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
				return nil, fmt.Errorf("%w: question %d correct option out of range", ErrInvalidQuestion, i+1)
			}
		} else {
			q.Options = nil
			q.CorrectOptionIndex = 0
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
