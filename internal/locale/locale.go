package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	LanguagePortuguese = "pt"
	LanguageEnglish    = "en"
)

type Preference struct {
	Language string
	Tag      language.Tag
	HTMLLang string
}

// NormalizeLanguage maps a BCP 47 style value onto a supported language,
// returning "" when the value is empty or unsupported.
func NormalizeLanguage(raw string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	switch base.String() {
	case LanguagePortuguese:
		return LanguagePortuguese
	case LanguageEnglish:
		return LanguageEnglish
	}
	return ""
}

// PreferenceForLanguage resolves the language settings, defaulting to Brazilian Portuguese.
func PreferenceForLanguage(lang string) Preference {
	if NormalizeLanguage(lang) == LanguageEnglish {
		return Preference{Language: LanguageEnglish, Tag: language.AmericanEnglish, HTMLLang: "en-US"}
	}
	return Preference{Language: LanguagePortuguese, Tag: language.BrazilianPortuguese, HTMLLang: "pt-BR"}
}
