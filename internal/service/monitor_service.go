package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
)

const liveSessionsTTL = 12 * time.Hour

// MonitorEventType tags live monitor messages.
type MonitorEventType string

const (
	MonitorJoined    MonitorEventType = "joined"
	MonitorProgress  MonitorEventType = "progress"
	MonitorViolation MonitorEventType = "violation"
	MonitorSubmitted MonitorEventType = "submitted"
	MonitorLeft      MonitorEventType = "left"
)

// LiveCandidate is one candidate's state as shown on the staff monitor.
type LiveCandidate struct {
	CandidateID     string    `json:"candidate_id"`
	Name            string    `json:"name"`
	Phase           string    `json:"phase"`
	AnsweredCount   int       `json:"answered_count"`
	ViolationCount  int       `json:"violation_count"`
	TimeLeftSeconds int       `json:"time_left_seconds"`
	TotalScore      *float64  `json:"total_score,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MonitorEvent is published on the exam's monitor channel.
type MonitorEvent struct {
	Type      MonitorEventType `json:"type"`
	Candidate LiveCandidate    `json:"candidate"`
}

// ResultCounter counts persisted results for an exam.
type ResultCounter interface {
	CountByExam(ctx context.Context, examID uuid.UUID) (int, error)
}

// MonitorSnapshot is the initial state sent to a staff monitor.
type MonitorSnapshot struct {
	Candidates     []LiveCandidate `json:"candidates"`
	TotalJoined    int             `json:"total_joined"`
	TotalActive    int             `json:"total_active"`
	TotalResults   int             `json:"total_results"`
	TotalViolation int             `json:"total_violations"`
}

// MonitorService keeps live candidate states in Redis and fans updates out
// over Redis Pub/Sub to staff SSE streams.
type MonitorService struct {
	rdb     *redis.Client
	results ResultCounter
	log     zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, results ResultCounter, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb:     rdb,
		results: results,
		log:     log.With().Str("component", "monitor_service").Logger(),
	}
}

// Publish stores the candidate state and notifies subscribers. Failures are
// logged only; monitoring never blocks an exam session.
func (s *MonitorService) Publish(ctx context.Context, examID uuid.UUID, ev MonitorEvent) {
	ev.Candidate.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	state, _ := json.Marshal(ev.Candidate)

	hashKey := config.CacheKey.ExamLiveSessionsKey(examID.String())
	pipe := s.rdb.Pipeline()
	if ev.Type == MonitorLeft {
		pipe.HDel(ctx, hashKey, ev.Candidate.CandidateID)
	} else {
		pipe.HSet(ctx, hashKey, ev.Candidate.CandidateID, state)
		pipe.Expire(ctx, hashKey, liveSessionsTTL)
	}
	pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to publish monitor event")
	}
}

// Snapshot reads live states and the persisted result count concurrently.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		states     map[string]string
		resultsN   int
		statesErr  error
		resultsErr error
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		states, statesErr = s.rdb.HGetAll(ctx, config.CacheKey.ExamLiveSessionsKey(examID.String())).Result()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		resultsN, resultsErr = s.results.CountByExam(ctx, examID)
	}()

	wg.Wait()

	// Live states are critical; the result count is best-effort.
	if statesErr != nil {
		return nil, fmt.Errorf("read live sessions: %w", statesErr)
	}

	snap := &MonitorSnapshot{Candidates: make([]LiveCandidate, 0, len(states))}
	for _, raw := range states {
		var c LiveCandidate
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		snap.Candidates = append(snap.Candidates, c)
		snap.TotalViolation += c.ViolationCount
		if c.Phase == "in_progress" {
			snap.TotalActive++
		}
	}
	snap.TotalJoined = len(snap.Candidates)
	if resultsErr == nil {
		snap.TotalResults = resultsN
	}
	return snap, nil
}

// Subscribe opens the exam's monitor channel.
func (s *MonitorService) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}
