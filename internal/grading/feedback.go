package grading

// Feedback supplies the fixed feedback strings attached to graded answers.
type Feedback interface {
	Correct() string
	Incorrect() string
	PendingManual() string
	GraderFailed() string
}

// StaticFeedback is a Feedback backed by literal strings.
type StaticFeedback struct {
	CorrectText       string
	IncorrectText     string
	PendingManualText string
	GraderFailedText  string
}

func (f StaticFeedback) Correct() string       { return f.CorrectText }
func (f StaticFeedback) Incorrect() string     { return f.IncorrectText }
func (f StaticFeedback) PendingManual() string { return f.PendingManualText }
func (f StaticFeedback) GraderFailed() string  { return f.GraderFailedText }

// ArabicFeedback is the portal's default language.
var ArabicFeedback = StaticFeedback{
	CorrectText:       "إجابة صحيحة",
	IncorrectText:     "إجابة خاطئة",
	PendingManualText: "بانتظار التصحيح",
	GraderFailedText:  "حدث خطأ أثناء التصحيح الآلي. يرجى المراجعة يدوياً.",
}
