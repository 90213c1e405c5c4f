package service

import "errors"

// Domain errors returned by the service layer. Handlers map them to
// response.ErrCode values.
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrExamInactive       = errors.New("exam is not active")
	ErrResultNotFound     = errors.New("result not found")
	ErrScoreOutOfRange    = errors.New("score outside question points")
	ErrQuestionNotInExam  = errors.New("question does not belong to the exam")
	ErrInvalidQuestion    = errors.New("invalid question definition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
	ErrNotSubmitted       = errors.New("session has not been submitted")
	ErrResultClaimed      = errors.New("result already produced for this session")
)
