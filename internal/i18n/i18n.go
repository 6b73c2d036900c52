// internal/i18n/i18n.go
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Bundle holds one message table per locale file.
type Bundle struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
	fallback string
}

var (
	global *Bundle
	once   sync.Once
)

// Region and script variants mapped onto the locales we ship.
var aliases = map[string]string{
	"zh-tw":   "zh_TW",
	"zh_tw":   "zh_TW",
	"zh-hant": "zh_TW",
	"zh-hk":   "zh_TW",
	"zh-mo":   "zh_TW",
}

func NewBundle(fallback string) *Bundle {
	if fallback == "" {
		fallback = "en"
	}
	return &Bundle{
		messages: make(map[string]map[string]string),
		fallback: fallback,
	}
}

// Initialize loads the process-wide bundle. Later calls are no-ops.
func Initialize(localesPath, defaultLang string) error {
	var err error
	once.Do(func() {
		b := NewBundle(defaultLang)
		if err = b.Load(localesPath); err == nil {
			global = b
		}
	})
	return err
}

// Load reads every <locale>.json in dir.
func (b *Bundle) Load(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list locale files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no locale files in %s", dir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", path, err)
		}

		var table map[string]string
		if err := json.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("failed to parse locale file %s: %w", path, err)
		}

		b.mu.Lock()
		b.messages[strings.TrimSuffix(filepath.Base(path), ".json")] = table
		b.mu.Unlock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.messages[b.fallback]; !ok {
		return fmt.Errorf("fallback locale %q not found in %s", b.fallback, dir)
	}
	return nil
}

func (b *Bundle) T(lang, key string, args ...interface{}) string {
	b.mu.RLock()
	text, ok := b.messages[lang][key]
	if !ok {
		text, ok = b.messages[b.fallback][key]
	}
	b.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func (b *Bundle) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	langs := make([]string, 0, len(b.messages))
	for lang := range b.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (b *Bundle) supports(lang string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.messages[lang]
	return ok
}

// Match picks the best loaded locale for an Accept-Language header, or ""
// when nothing matches.
func (b *Bundle) Match(header string) string {
	for _, tag := range parseAcceptLanguage(header) {
		if lang := normalize(tag); lang != "" && b.supports(lang) {
			return lang
		}
	}
	return ""
}

type weightedTag struct {
	tag string
	q   float64
}

// parseAcceptLanguage returns tags ordered by q-value, header order kept
// for ties.
func parseAcceptLanguage(header string) []string {
	var tags []weightedTag
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		tag := strings.TrimSpace(fields[0])
		if tag == "" || tag == "*" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if strings.HasPrefix(param, "q=") {
				if v, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64); err == nil {
					q = v
				}
			}
		}
		if q > 0 {
			tags = append(tags, weightedTag{tag: tag, q: q})
		}
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].q > tags[j].q })

	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.tag
	}
	return out
}

func normalize(tag string) string {
	lower := strings.ToLower(tag)
	if lang, ok := aliases[lower]; ok {
		return lang
	}
	// en-US, en-GB and friends
	if base, _, found := strings.Cut(lower, "-"); found {
		return base
	}
	return lower
}

// Package-level helpers over the bundle loaded by Initialize.

func T(lang, key string, args ...interface{}) string {
	if global == nil {
		return key
	}
	return global.T(lang, key, args...)
}

func Match(header string) string {
	if global == nil {
		return ""
	}
	return global.Match(header)
}

func GetSupportedLanguages() []string {
	if global == nil {
		return []string{"en"}
	}
	return global.Languages()
}
