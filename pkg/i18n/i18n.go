// Package i18n localizes API messages. The dashboard is Portuguese first;
// English is served when Accept-Language asks for it.
//
//	loc := i18n.ForRequest(r)
//	pkg.ErrorWithMessage(w, http.StatusBadRequest, loc.T("squads.duplicate"))
package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SupportedLanguages are the locale files expected by Load.
var SupportedLanguages = []string{"pt", "en"}

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "pt"

// Loaded once at startup and read-only afterwards.
var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

// Load reads <lang>.json for every supported language from localesFS.
// Nested objects become dotted keys: {"auth":{"x":"…"}} is "auth.x".
// Only the first call does any work.
func Load(localesFS fs.FS, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	loadOnce.Do(func() {
		loaded := make(map[string]map[string]string, len(SupportedLanguages))

		for _, lang := range SupportedLanguages {
			fileName := lang + ".json"

			data, err := fs.ReadFile(localesFS, fileName)
			if err != nil {
				loadErr = fmt.Errorf("failed to read translation file %s: %w", fileName, err)
				return
			}

			var nested map[string]any
			if err := json.Unmarshal(data, &nested); err != nil {
				loadErr = fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
				return
			}

			flat := make(map[string]string)
			flattenMap("", nested, flat)
			loaded[lang] = flat

			logger.Debug("translations loaded", zap.String("lang", lang), zap.Int("keys", len(flat)))
		}

		translations = loaded
	})

	return loadErr
}

// Localizer translates keys for one language.
type Localizer struct {
	lang string
}

// NewLocalizer falls back to DefaultLanguage for unsupported codes.
func NewLocalizer(lang string) *Localizer {
	if !isSupported(lang) {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang}
}

// ForRequest picks the language from Accept-Language.
func ForRequest(r *http.Request) *Localizer {
	return NewLocalizer(DetectLanguage(r.Header.Get("Accept-Language")))
}

// Lang returns the resolved language code.
func (l *Localizer) Lang() string { return l.lang }

// T returns the translation, then the default language one, then the key.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams replaces {{name}} placeholders.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

// DetectLanguage returns the first supported language of an
// Accept-Language header such as "en-US,en;q=0.9,pt;q=0.8".
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		lang := strings.TrimSpace(strings.Split(part, ";")[0])
		lang = strings.ToLower(strings.Split(lang, "-")[0])
		if isSupported(lang) {
			return lang
		}
	}
	return DefaultLanguage
}

func isSupported(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
