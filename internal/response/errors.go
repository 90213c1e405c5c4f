package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrStaffAccessOnly ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrGuestNameTooShort  ErrCode = "GUEST_NAME_TOO_SHORT"
	ErrFullscreenRequired ErrCode = "FULLSCREEN_REQUIRED"
	ErrAlreadyEntered     ErrCode = "ALREADY_ENTERED"
	ErrNotInProgress      ErrCode = "EXAM_NOT_IN_PROGRESS"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrNotConfirmed       ErrCode = "SUBMIT_NOT_CONFIRMED"
	ErrUnknownQuestion    ErrCode = "UNKNOWN_QUESTION"
	ErrWrongAnswerKind    ErrCode = "WRONG_ANSWER_KIND"
	ErrScoreOutOfRange    ErrCode = "SCORE_OUT_OF_RANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStaffAccessOnly:
		return "This resource is restricted to teachers and administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrGuestNameTooShort:
		return "Please enter a name of at least 3 characters."
	case ErrFullscreenRequired:
		return "Fullscreen mode is required to take this exam."
	case ErrAlreadyEntered:
		return "The exam has already been entered."
	case ErrNotInProgress:
		return "The exam is not in progress."
	case ErrAlreadySubmitted:
		return "The exam has already been submitted."
	case ErrNotConfirmed:
		return "Submission must be confirmed."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrWrongAnswerKind:
		return "The answer type does not match the question type."
	case ErrScoreOutOfRange:
		return "Score must be between 0 and the question's points."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
