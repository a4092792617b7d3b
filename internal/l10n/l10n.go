// Package l10n selects the notification text catalog for the configured
// language. The pipeline itself logs in English; only user-facing
// notification strings are localized.
package l10n

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(supported)

// Catalog resolves message keys into localized strings.
type Catalog struct {
	messages map[string]string
}

// NewCatalog matches lang against the supported languages and returns the
// closest catalog. Unknown or empty tags fall back to English.
func NewCatalog(lang string) *Catalog {
	tag, _ := language.MatchStrings(matcher, lang)
	base, _ := tag.Base()
	messages, ok := catalogs[base.String()]
	if !ok {
		messages = catalogs["en"]
	}
	return &Catalog{messages: messages}
}

// Get returns the message for key, formatted with args. Missing keys fall
// back to English, then to the key itself.
func (c *Catalog) Get(key string, args ...any) string {
	msg, ok := c.messages[key]
	if !ok {
		msg, ok = catalogs["en"][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var catalogs = map[string]map[string]string{
	"en": {
		"notify.archived.title":        "printdrop - Archived",
		"notify.archived.message":      "Archived %s to %s",
		"notify.noprint.title":         "printdrop - Archived (not printed)",
		"notify.noprint.message":       "Archived %s without printing",
		"notify.print_started.title":   "printdrop - Printing",
		"notify.print_started.message": "Sent %s to printer %s",
		"notify.error.title":           "printdrop - Error",
		"notify.error.message":         "Error with %s: %s",
		"notify.test.title":            "printdrop - Test",
		"notify.test.message":          "Notification system test",
		"confirm.print.question":       "Print %s?",
	},
	"de": {
		"notify.archived.title":        "printdrop - Archiviert",
		"notify.archived.message":      "%s nach %s archiviert",
		"notify.noprint.title":         "printdrop - Archiviert (nicht gedruckt)",
		"notify.noprint.message":       "%s ohne Drucken archiviert",
		"notify.print_started.title":   "printdrop - Druckt",
		"notify.print_started.message": "%s an Drucker %s gesendet",
		"notify.error.title":           "printdrop - Fehler",
		"notify.error.message":         "Fehler bei %s: %s",
		"notify.test.title":            "printdrop - Test",
		"notify.test.message":          "Test des Benachrichtigungssystems",
		"confirm.print.question":       "%s drucken?",
	},
}
