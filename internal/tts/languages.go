package tts

// Language maps a user-facing language to engine-specific identifiers.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	google string
	espeak string
}

// languages is ordered as presented to users.
var languages = []Language{
	{Code: "en", Name: "English (US)", google: "en", espeak: "en-us"},
	{Code: "en-uk", Name: "English (UK)", google: "en-GB", espeak: "en-gb"},
	{Code: "es", Name: "Spanish", google: "es", espeak: "es"},
	{Code: "fr", Name: "French", google: "fr", espeak: "fr"},
	{Code: "de", Name: "German", google: "de", espeak: "de"},
	{Code: "it", Name: "Italian", google: "it", espeak: "it"},
	{Code: "pt", Name: "Portuguese", google: "pt", espeak: "pt"},
	{Code: "ru", Name: "Russian", google: "ru", espeak: "ru"},
	{Code: "ja", Name: "Japanese", google: "ja", espeak: "ja"},
	{Code: "ko", Name: "Korean", google: "ko", espeak: "ko"},
	{Code: "zh-cn", Name: "Chinese", google: "zh-CN", espeak: "cmn"},
	{Code: "hi", Name: "Hindi", google: "hi", espeak: "hi"},
	{Code: "ar", Name: "Arabic", google: "ar", espeak: "ar"},
}

// DefaultLanguage is used when a request names no language.
const DefaultLanguage = "en"

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LookupLanguage finds a language by code.
func LookupLanguage(code string) (Language, bool) {
	if code == "" {
		code = DefaultLanguage
	}
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

func languageCodes() []string {
	codes := make([]string, len(languages))
	for i, l := range languages {
		codes[i] = l.Code
	}
	return codes
}
