package translation

import (
	"fmt"
	"sort"
	"strings"
)

// Language is a supported language.
type Language struct {
	Code string
	Name string
}

var languages = map[string]Language{
	"ar": {Code: "ar", Name: "Arabic"},
	"cs": {Code: "cs", Name: "Czech"},
	"da": {Code: "da", Name: "Danish"},
	"de": {Code: "de", Name: "German"},
	"el": {Code: "el", Name: "Greek"},
	"en": {Code: "en", Name: "English"},
	"es": {Code: "es", Name: "Spanish"},
	"fi": {Code: "fi", Name: "Finnish"},
	"fr": {Code: "fr", Name: "French"},
	"hu": {Code: "hu", Name: "Hungarian"},
	"it": {Code: "it", Name: "Italian"},
	"ja": {Code: "ja", Name: "Japanese"},
	"ko": {Code: "ko", Name: "Korean"},
	"nb": {Code: "nb", Name: "Norwegian Bokmål"},
	"nl": {Code: "nl", Name: "Dutch"},
	"pl": {Code: "pl", Name: "Polish"},
	"pt": {Code: "pt", Name: "Portuguese"},
	"ro": {Code: "ro", Name: "Romanian"},
	"ru": {Code: "ru", Name: "Russian"},
	"sv": {Code: "sv", Name: "Swedish"},
	"tr": {Code: "tr", Name: "Turkish"},
	"uk": {Code: "uk", Name: "Ukrainian"},
	"zh": {Code: "zh", Name: "Chinese"},
}

// LookupLanguage resolves a code such as "de", "DE" or "de-AT" to a supported language.
func LookupLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	lang, ok := languages[code]
	return lang, ok
}

// ResolveLanguage is LookupLanguage with an error naming the bad code.
func ResolveLanguage(code string) (Language, error) {
	lang, ok := LookupLanguage(code)
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return lang, nil
}

// SupportedLanguages lists every supported code in sorted order.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languages))
	for code := range languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
