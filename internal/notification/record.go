package notification

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record is a single notification to be shown to the user.
type Record struct {
	// Title defaults to "Notification from <Source>" when built with New.
	Title string

	// Body is the message text.
	Body string

	// Source is the registry name of the client that produced the record,
	// e.g. "github". The display sink also uses it as the icon name.
	Source string

	// UID is the source-native identifier. Empty for synthetic records.
	UID string
}

// Key is the identity of a non-synthetic record.
type Key struct {
	Source string
	UID    string
}

// New builds a record with the default title for source.
func New(source, uid, body string) Record {
	return Record{
		Title:  DefaultTitle(source),
		Body:   body,
		Source: source,
		UID:    uid,
	}
}

// DefaultTitle returns the title used when a source does not supply one.
func DefaultTitle(source string) string {
	return fmt.Sprintf("Notification from %s", cases.Title(language.Und).String(source))
}

// Synthetic reports whether r was generated locally rather than fetched.
func (r Record) Synthetic() bool { return r.UID == "" }

// Key returns r's identity. ok is false for synthetic records.
func (r Record) Key() (k Key, ok bool) {
	if r.Synthetic() {
		return Key{}, false
	}
	return Key{Source: r.Source, UID: r.UID}, true
}

// Same reports whether r and o are the same notification.
func (r Record) Same(o Record) bool {
	rk, ok := r.Key()
	if !ok {
		return false
	}
	ko, isReal := o.Key()
	return isReal && rk == ko
}
