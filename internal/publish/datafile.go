package publish

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/TobiSchelling/arabpress/internal/news"
)

var (
	idRe     = regexp.MustCompile(`(?m)^[ \t]*\{?[ \t]*id:[ \t]*(\d+)[ \t]*,`)
	anchorRe = regexp.MustCompile(`(\s*)\];?\s*\n\s*export const categories`)
	recordRe = regexp.MustCompile(`\{\s*id:\s*\d+`)
)

// Skeleton is a minimal data file with an empty article list.
const Skeleton = `export interface Article {
  id: number;
  slug: string;
  title: string;
  summary: string;
  category: string;
  date: string;
  metaDescription?: string;
  keywords?: string;
  author?: string;
  image?: string;
  imageAlt?: string;
  content: string;
}

export const newsData: Article[] = [
];

export const categories = ["سياسة", "اقتصاد", "رياضة", "تكنولوجيا", "ثقافة", "بيئة"];
`

// MaxID returns the largest record id in text, or 0. Only an "id: N," field
// at the start of a line counts, so ids quoted inside article text do not.
func MaxID(text string) int {
	maxID := 0
	for _, m := range idRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID
}

var escaper = strings.NewReplacer(`\`, `\\`, "`", "\\`", `$`, `\$`)

// Escape makes s safe inside a template literal.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. Other backslash sequences are kept verbatim.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\', '`', '$':
				b.WriteByte(s[i+1])
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Quote renders s as a double-quoted string literal that JavaScript and
// strconv.Unquote both read back as s. Control characters and the JS line
// separators become \uXXXX escapes; invalid UTF-8 becomes U+FFFD.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range strings.ToValidUTF8(s, "\uFFFD") {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029' {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatRecord renders one article in the data file's record syntax.
func FormatRecord(p news.Published) string {
	meta := p.MetaDescription
	if meta == "" {
		meta = p.Summary
	}

	var b strings.Builder
	b.WriteString("  {\n")
	fmt.Fprintf(&b, "    id: %d,\n", p.ID)
	fmt.Fprintf(&b, "    slug: %s,\n", Quote(p.Slug))
	fmt.Fprintf(&b, "    title: `%s`,\n", Escape(p.Title))
	fmt.Fprintf(&b, "    summary: `%s`,\n", Escape(p.Summary))
	fmt.Fprintf(&b, "    category: %s,\n", Quote(p.Category))
	fmt.Fprintf(&b, "    date: %s,\n", Quote(p.Date))
	fmt.Fprintf(&b, "    metaDescription: `%s`,\n", Escape(meta))
	fmt.Fprintf(&b, "    keywords: %s,\n", Quote(p.Keywords))
	fmt.Fprintf(&b, "    author: %s,\n", Quote(p.Author))
	if p.Image != "" {
		fmt.Fprintf(&b, "    image: %s,\n", Quote(p.Image))
	}
	if p.ImageAlt != "" {
		fmt.Fprintf(&b, "    imageAlt: %s,\n", Quote(p.ImageAlt))
	}
	fmt.Fprintf(&b, "    content: `%s`\n", Escape(p.Content))
	b.WriteString("  }")
	return b.String()
}

// Splice inserts the rendered records at the end of the article list, right
// before the categories declaration.
func Splice(text string, records []string) (string, error) {
	loc := anchorRe.FindStringIndex(text)
	if loc == nil {
		return "", fmt.Errorf("insertion point not found: no \"export const categories\" after the article list")
	}
	if len(records) == 0 {
		return text, nil
	}

	before := strings.TrimRight(text[:loc[0]], " \t\r\n")
	sep := ",\n"
	if strings.HasSuffix(before, "[") || strings.HasSuffix(before, ",") {
		sep = "\n"
	}
	return before + sep + strings.Join(records, ",\n") + "\n];\n\nexport const categories" + text[loc[1]:], nil
}

// ParseRecords reads back the records written by FormatRecord, along with
// hand-written records that use the same field syntax.
func ParseRecords(text string) ([]news.Published, error) {
	var out []news.Published
	pos := 0
	for {
		loc := recordRe.FindStringIndex(text[pos:])
		if loc == nil {
			return out, nil
		}
		start := pos + loc[0]
		fields, end, err := parseObject(text, start)
		if err != nil {
			return out, fmt.Errorf("record at offset %d: %w", start, err)
		}
		p, err := recordFromFields(fields)
		if err != nil {
			return out, fmt.Errorf("record at offset %d: %w", start, err)
		}
		out = append(out, p)
		pos = end
	}
}

func recordFromFields(f map[string]string) (news.Published, error) {
	id, err := strconv.Atoi(f["id"])
	if err != nil {
		return news.Published{}, fmt.Errorf("bad id %q", f["id"])
	}
	return news.Published{
		ID: id,
		Draft: news.Draft{
			Slug:            f["slug"],
			Title:           f["title"],
			Summary:         f["summary"],
			Category:        f["category"],
			Date:            f["date"],
			MetaDescription: f["metaDescription"],
			Keywords:        f["keywords"],
			Author:          f["author"],
			Image:           f["image"],
			ImageAlt:        f["imageAlt"],
			Content:         f["content"],
		},
	}, nil
}

// parseObject reads `{ key: value, ... }` starting at text[i] == '{' and
// returns the fields with the index just past the closing brace. Values are
// numbers, double-quoted strings or template literals.
func parseObject(text string, i int) (map[string]string, int, error) {
	fields := make(map[string]string)
	i++
	for {
		i = skipSpace(text, i)
		if i >= len(text) {
			return nil, i, fmt.Errorf("unterminated record")
		}
		if text[i] == '}' {
			return fields, i + 1, nil
		}

		keyStart := i
		for i < len(text) && (isIdent(text[i])) {
			i++
		}
		key := text[keyStart:i]
		if key == "" {
			return nil, i, fmt.Errorf("expected field name at offset %d", i)
		}
		i = skipSpace(text, i)
		if i >= len(text) || text[i] != ':' {
			return nil, i, fmt.Errorf("expected ':' after %s", key)
		}
		i = skipSpace(text, i+1)
		if i >= len(text) {
			return nil, i, fmt.Errorf("missing value for %s", key)
		}

		var value string
		var err error
		switch text[i] {
		case '`':
			value, i, err = readDelimited(text, i, '`')
			value = Unescape(value)
		case '"':
			var raw string
			raw, i, err = readDelimited(text, i, '"')
			if uq, uerr := strconv.Unquote(`"` + raw + `"`); uerr == nil {
				value = uq
			} else {
				value = raw
			}
		default:
			start := i
			for i < len(text) && text[i] != ',' && text[i] != '}' && text[i] != '\n' {
				i++
			}
			value = strings.TrimSpace(text[start:i])
		}
		if err != nil {
			return nil, i, fmt.Errorf("field %s: %w", key, err)
		}
		fields[key] = value

		i = skipSpace(text, i)
		if i < len(text) && text[i] == ',' {
			i++
		}
	}
}

// readDelimited returns the raw body of a literal opened at text[i] and the
// index just past its closing delimiter.
func readDelimited(text string, i int, delim byte) (string, int, error) {
	start := i + 1
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case delim:
			return text[start:j], j + 1, nil
		}
	}
	return "", len(text), fmt.Errorf("unterminated string")
}

func skipSpace(text string, i int) int {
	for i < len(text) && strings.IndexByte(" \t\r\n", text[i]) >= 0 {
		i++
	}
	return i
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
