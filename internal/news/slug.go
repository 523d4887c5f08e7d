package news

import (
	"regexp"
	"strings"
)

const maxSlugLen = 60

var translit = map[rune]string{
	'ا': "a", 'أ': "a", 'إ': "i", 'آ': "a",
	'ب': "b", 'ت': "t", 'ث': "th", 'ج': "j",
	'ح': "h", 'خ': "kh", 'د': "d", 'ذ': "dh",
	'ر': "r", 'ز': "z", 'س': "s", 'ش': "sh",
	'ص': "s", 'ض': "d", 'ط': "t", 'ظ': "z",
	'ع': "a", 'غ': "gh", 'ف': "f", 'ق': "q",
	'ك': "k", 'ل': "l", 'م': "m", 'ن': "n",
	'ه': "h", 'و': "w", 'ي': "y", 'ى': "a",
	'ة': "a", 'ء': "", ' ': "-",
}

var (
	nonSlugChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// Slug transliterates an Arabic title into a URL-safe identifier of at most
// 60 characters with no leading, trailing or doubled hyphens.
func Slug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if s, ok := translit[r]; ok {
			b.WriteString(s)
			continue
		}
		b.WriteRune(r)
	}

	slug := nonSlugChars.ReplaceAllString(b.String(), "")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}
