package locale

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
)

var monthAbbreviations = map[string][12]string{
	LanguagePortuguese: {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	LanguageEnglish:    {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// FormatDate renders t as "d MMM yyyy" with a localized, lower-cased month,
// e.g. "25 mar 2021". The time is formatted in its own location.
func FormatDate(t time.Time, lang string) string {
	pref := PreferenceForLanguage(lang)
	months := monthAbbreviations[pref.Language]
	raw := fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
	return cases.Lower(pref.Tag).String(raw)
}

// FormatTime renders the time of day as "HH:mm".
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}
