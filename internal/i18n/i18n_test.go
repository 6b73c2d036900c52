package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b := NewBundle("en")
	require.NoError(t, b.Load("./locales"))
	return b
}

func TestTranslations(t *testing.T) {
	b := loadBundle(t)

	assert.Equal(t, "Your cart is empty", b.T("en", "errors.empty_cart"))
	assert.Equal(t, "購物車是空的", b.T("zh_TW", "errors.empty_cart"))
	assert.Equal(t, "Invalid input", b.T("en", KeyValidationInvalid, "input"))

	// unknown language falls back to the default
	assert.Equal(t, "Order not found", b.T("fr", KeyOrderNotFound))
	// unknown key comes back unchanged
	assert.Equal(t, "no.such.key", b.T("en", "no.such.key"))
}

func TestLocalesShareKeys(t *testing.T) {
	b := loadBundle(t)
	assert.Equal(t, []string{"en", "zh_TW"}, b.Languages())

	for key := range b.messages["en"] {
		_, ok := b.messages["zh_TW"][key]
		assert.True(t, ok, "zh_TW is missing %s", key)
	}
}

func TestLoadRequiresFallbackLocale(t *testing.T) {
	assert.Error(t, NewBundle("de").Load("./locales"))
	assert.Error(t, NewBundle("en").Load(t.TempDir()))
}

func TestMatch(t *testing.T) {
	b := loadBundle(t)

	cases := map[string]string{
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"zh-Hant":                 "zh_TW",
		"en-US":                   "en",
		"fr;q=0.9,zh-HK;q=0.5":    "zh_TW",
		"de;q=1,en;q=0":           "",
		"fr-FR":                   "",
		"":                        "",
	}
	for header, want := range cases {
		assert.Equal(t, want, b.Match(header), header)
	}
}
