package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrUnparseable is returned when no repair pass yields valid JSON.
var ErrUnparseable = errors.New("unparseable JSON response")

var fenceRe = regexp.MustCompile("```(?:json|JSON)?[ \t]*\r?\n?")

// ExtractJSON decodes the JSON object contained in a model response into v.
//
// The text goes through StripFences, ExtractBraces and EscapeControls before
// decoding. If that candidate is still invalid, a second candidate is built
// from the extracted object with StripControls and EscapeNewlines. When both
// fail the error wraps ErrUnparseable.
func ExtractJSON(raw string, v any) error {
	obj := ExtractBraces(StripFences(raw))
	if obj == "" {
		return fmt.Errorf("%w: no object in response", ErrUnparseable)
	}

	candidate := EscapeControls(obj)
	if !json.Valid([]byte(candidate)) {
		candidate = EscapeNewlines(StripControls(obj))
		if !json.Valid([]byte(candidate)) {
			return fmt.Errorf("%w: %s", ErrUnparseable, preview(obj))
		}
	}

	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StripFences removes Markdown code fences, with or without a json tag.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// ExtractBraces returns the span from the first '{' to the last '}', or ""
// when there is none.
func ExtractBraces(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// EscapeControls re-escapes raw control characters that appear inside string
// values. Characters outside strings are left as they are.
func EscapeControls(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case !inString:
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r < 0x20:
			b.WriteString(escapeControl(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripControls drops every control character except newline.
func StripControls(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// EscapeNewlines escapes bare newlines inside string values. A quote only
// closes a string when the next non-blank character is one of , : } ] or the
// end of input; any other quote is taken as part of the text and escaped.
func EscapeNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case !inString:
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
		case r == '\\' && i+size < len(s):
			next, nsize := utf8.DecodeRuneInString(s[i+size:])
			if next == '\n' {
				b.WriteString(`\n`)
			} else {
				b.WriteRune(r)
				b.WriteRune(next)
			}
			size += nsize
		case r == '"':
			if closesString(s[i+size:]) {
				inString = false
				b.WriteRune(r)
			} else {
				b.WriteString(`\"`)
			}
		case r == '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', ':', '}', ']':
		return true
	}
	return false
}

func escapeControl(r rune) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	}
	return fmt.Sprintf(`\u%04x`, r)
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= 80 {
		return s
	}
	return string([]rune(s)[:80]) + "..."
}
