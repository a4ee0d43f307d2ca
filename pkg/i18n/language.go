// Package i18n normalizes and reads bilingual (English/French) field values.
//
// Every function in this package is pure and total: legacy strings, partially
// filled objects and arbitrary scalars are absorbed, never rejected.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the two content languages.
type Language string

const (
	English Language = "en"
	French  Language = "fr"
)

// Languages lists the supported languages in canonical order.
var Languages = []Language{English, French}

var matcher = language.NewMatcher([]language.Tag{language.English, language.French})

// Valid reports whether l is English or French.
func (l Language) Valid() bool {
	return l == English || l == French
}

// Other returns the opposite language, or "" for an unsupported one.
func (l Language) Other() Language {
	switch l {
	case English:
		return French
	case French:
		return English
	default:
		return ""
	}
}

// ParseLanguage maps a BCP 47 tag (en, FR, fr-CA, en-GB...) to a Language.
// Unknown or malformed input yields English with ok=false.
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return English, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return English, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return English, false
	}
	switch base.String() {
	case "en":
		return English, true
	case "fr":
		return French, true
	}
	return English, false
}

// MatchAcceptLanguage picks the best supported language for an
// Accept-Language header value. Defaults to English.
func MatchAcceptLanguage(header string) Language {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	return Languages[idx]
}
