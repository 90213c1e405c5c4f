package handler

import (
	"errors"
	"net/http"

	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
)

// mapError translates a domain error into an HTTP status and error code.
func mapError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrExamInactive):
		return http.StatusConflict, response.ErrExamNotAvailable
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrSessionInvalidated):
		return http.StatusUnauthorized, response.ErrSessionInvalidated
	case errors.Is(err, service.ErrScoreOutOfRange):
		return http.StatusUnprocessableEntity, response.ErrScoreOutOfRange
	case errors.Is(err, service.ErrQuestionNotInExam),
		errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity, response.ErrUnknownQuestion
	case errors.Is(err, service.ErrInvalidQuestion):
		return http.StatusUnprocessableEntity, response.ErrValidation
	case errors.Is(err, session.ErrWrongAnswerKind):
		return http.StatusUnprocessableEntity, response.ErrWrongAnswerKind
	case errors.Is(err, session.ErrGuestNameTooShort):
		return http.StatusUnprocessableEntity, response.ErrGuestNameTooShort
	case errors.Is(err, session.ErrFullscreenDenied):
		return http.StatusConflict, response.ErrFullscreenRequired
	case errors.Is(err, session.ErrAlreadyEntered):
		return http.StatusConflict, response.ErrAlreadyEntered
	case errors.Is(err, session.ErrAlreadySubmitted),
		errors.Is(err, service.ErrResultClaimed):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, session.ErrNotInProgress),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, service.ErrNotSubmitted):
		return http.StatusConflict, response.ErrNotInProgress
	case errors.Is(err, session.ErrNotConfirmed):
		return http.StatusUnprocessableEntity, response.ErrNotConfirmed
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
