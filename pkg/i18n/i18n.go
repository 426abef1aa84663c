package i18n

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Key identifies a user-facing message.
type Key string

const (
	CoordinatesInvalid Key = "coordinates_invalid"
	UnitsInvalid       Key = "units_invalid"
	FeedURLMissing     Key = "feed_url_missing"
	APIKeyMissing      Key = "api_key_missing"
	WeatherFetchFailed Key = "weather_fetch_failed"
	FeedFetchFailed    Key = "feed_fetch_failed"
	FeedParseFailed    Key = "feed_parse_failed"
	RenderFailed       Key = "render_failed"
	RenderNoImage      Key = "render_no_image"
	NoNews             Key = "no_news"
	NotAvailable       Key = "not_available"
	FallbackText       Key = "fallback_text"
	UnknownPlugin      Key = "unknown_plugin"
	InvalidSettings    Key = "invalid_settings"
)

// DefaultLanguage is used when a device does not configure one.
var DefaultLanguage = language.German

var supported = []language.Tag{language.German, language.English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Key]string{
	language.German: {
		CoordinatesInvalid: "Bitte Breitengrad und Längengrad korrekt angeben.",
		UnitsInvalid:       "Einheiten sind ungültig.",
		FeedURLMissing:     "Bitte eine RSS-URL angeben.",
		APIKeyMissing:      "OpenWeatherMap-API-Key ist nicht konfiguriert.",
		WeatherFetchFailed: "Wetterdaten konnten nicht abgerufen werden.",
		FeedFetchFailed:    "RSS konnte nicht abgerufen werden.",
		FeedParseFailed:    "RSS konnte nicht verarbeitet werden.",
		RenderFailed:       "Rendering fehlgeschlagen. Bitte Logs prüfen.",
		RenderNoImage:      "Rendering fehlgeschlagen (kein Bild erzeugt). Bitte Logs prüfen.",
		NoNews:             "(Keine News gefunden)",
		NotAvailable:       "k. A.",
		FallbackText:       "Hello World 👋",
		UnknownPlugin:      "Unbekanntes Plugin: %s",
		InvalidSettings:    "Einstellungen konnten nicht gelesen werden.",
	},
	language.English: {
		CoordinatesInvalid: "Please enter a valid latitude and longitude.",
		UnitsInvalid:       "Units are invalid.",
		FeedURLMissing:     "Please enter an RSS URL.",
		APIKeyMissing:      "OpenWeatherMap API key is not configured.",
		WeatherFetchFailed: "Weather data could not be retrieved.",
		FeedFetchFailed:    "RSS feed could not be retrieved.",
		FeedParseFailed:    "RSS feed could not be processed.",
		RenderFailed:       "Rendering failed. Please check the logs.",
		RenderNoImage:      "Rendering failed (no image produced). Please check the logs.",
		NoNews:             "(No news found)",
		NotAvailable:       "n/a",
		FallbackText:       "Hello World 👋",
		UnknownPlugin:      "Unknown plugin: %s",
		InvalidSettings:    "Settings could not be read.",
	},
}

// Match maps a configured language such as "de", "en-GB" or "" to one of the
// supported catalog languages.
func Match(lang string) language.Tag {
	if lang == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage
	}
	return supported[idx]
}

// T returns the message for key in lang, formatted with args when given.
func T(lang string, key Key, args ...any) string {
	msg, ok := catalog[Match(lang)][key]
	if !ok {
		msg, ok = catalog[DefaultLanguage][key]
	}
	if !ok {
		return string(key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// indexed by time.Weekday, Sunday first
var weekdays = map[language.Tag][]string{
	language.German:  {"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
	language.English: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

var months = map[language.Tag][]string{
	language.German: {"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
	language.English: {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
}

// FormatDate renders t as a long date without depending on the process locale,
// e.g. "Montag, 05. Januar 2026" or "Monday, 05 January 2026".
func FormatDate(t time.Time, lang string) string {
	tag := Match(lang)
	wd := weekdays[tag][t.Weekday()]
	month := months[tag][t.Month()-1]
	if tag == language.German {
		return fmt.Sprintf("%s, %02d. %s %d", wd, t.Day(), month, t.Year())
	}
	return fmt.Sprintf("%s, %02d %s %d", wd, t.Day(), month, t.Year())
}
