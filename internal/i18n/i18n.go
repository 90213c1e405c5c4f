// Package i18n holds the localized strings the portal attaches to results,
// warnings and audit logs. Arabic is the default catalog.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stemsi/exam-portal/internal/model"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const DefaultLanguage = "ar"

// Catalog resolves message IDs for one language, falling back to Arabic.
type Catalog struct {
	lang      string
	localizer *i18n.Localizer
}

// New loads every embedded locale and returns a catalog for lang.
func New(lang string) (*Catalog, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	if _, err := language.Parse(lang); err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.Arabic)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}

	return &Catalog{
		lang:      lang,
		localizer: i18n.NewLocalizer(bundle, lang, DefaultLanguage),
	}, nil
}

func (c *Catalog) Language() string { return c.lang }

// T translates a message by ID. Unknown IDs come back unchanged.
func (c *Catalog) T(msgID string) string {
	s, err := c.localizer.Localize(&i18n.LocalizeConfig{MessageID: msgID})
	if err != nil {
		return msgID
	}
	return s
}

// Td translates a message by ID with template data.
func (c *Catalog) Td(msgID string, data map[string]any) string {
	s, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		return msgID
	}
	return s
}

func (c *Catalog) Correct() string       { return c.T("FeedbackCorrect") }
func (c *Catalog) Incorrect() string     { return c.T("FeedbackIncorrect") }
func (c *Catalog) PendingManual() string { return c.T("FeedbackPendingManual") }
func (c *Catalog) GraderFailed() string  { return c.T("FeedbackGraderFailed") }

// Warning returns the candidate-facing text for a violation.
func (c *Catalog) Warning(kind model.ViolationKind) string {
	switch kind {
	case model.ViolationFullscreenExit:
		return c.T("WarningFullscreenExit")
	default:
		return c.T("WarningTabHidden")
	}
}

// StatusChanged is the audit description for an activation toggle.
func (c *Catalog) StatusChanged(active bool) string {
	status := c.T("StatusInactive")
	if active {
		status = c.T("StatusActive")
	}
	return c.Td("LogStatusChanged", map[string]any{"Status": status})
}

// ExportHeaders returns the sheet name and column titles for result exports.
func (c *Catalog) ExportHeaders() (sheet string, columns []string) {
	return c.T("ExportSheet"), []string{
		c.T("ExportStudent"),
		c.T("ExportExam"),
		c.T("ExportScore"),
		c.T("ExportMaxScore"),
		c.T("ExportDate"),
		c.T("ExportViolations"),
	}
}
