// internal/app/system/normalize/normalize.go

// Package normalize owns canonicalization of externally-supplied
// identity fields. Lookup and uniqueness always use the normalized
// form; display fields keep what the caller supplied.
package normalize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.StrictPolicy()

// Email returns the lowercase, trimmed form of an email address. This
// is the form stored in logins.email and used for every lookup; the
// original casing is kept separately as the display email.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and strips any markup. Profile names arrive
// from external identity providers and are later rendered by UI
// consumers, so they are sanitized before persistence. Case is
// preserved.
func Name(s string) string {
	return strings.TrimSpace(namePolicy.Sanitize(s))
}

// NameFromEmail derives a fallback display name from the local part of
// an email address, for profiles that arrive without a usable name.
// "jane.doe+docs@example.com" becomes "jane.doe".
func NameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at > 0 {
		email = email[:at]
	}
	if plus := strings.IndexByte(email, '+'); plus > 0 {
		email = email[:plus]
	}
	return email
}
