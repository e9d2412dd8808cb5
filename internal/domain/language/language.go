// Package language enumerates the answer languages supported by the
// refinement step.
package language

// Language is an ISO 639-1 answer language code.
type Language string

// Supported languages.
const (
	English Language = "en"
	French  Language = "fr"
	Arabic  Language = "ar"
	Spanish Language = "es"
)

// Default is the fallback for unsupported or empty codes.
const Default = English

// IsValid checks if the language is one of the supported codes.
func (l Language) IsValid() bool {
	return l == English || l == French || l == Arabic || l == Spanish
}

// Normalize returns the language for a raw code, falling back to Default
// for unsupported or empty input.
func Normalize(code string) Language {
	l := Language(code)
	if !l.IsValid() {
		return Default
	}
	return l
}
