// internal/models/locale.go
package models

const (
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)

// SupportedLocales lists the content languages, default first.
var SupportedLocales = []string{LocaleEnglish, LocaleArabic}

// IsSupportedLocale reports whether content exists for the locale.
func IsSupportedLocale(locale string) bool {
	for _, l := range SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// IsRTL reports whether the locale is written right to left.
func IsRTL(locale string) bool {
	return locale == LocaleArabic
}
