package generate

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/arabpress/internal/news"
)

const articlePrompt = `You are a professional journalist covering the Arab world. Write a complete article in Modern Standard Arabic based on this news item:

TITLE: %s
SUMMARY: %s
SUGGESTED CATEGORY: %s
SOURCE: %s
SOURCE LINK: %s

ARTICLE STRUCTURE:
- An engaging introduction of 2-3 paragraphs
- At least 5 well-developed sections, each introduced by a ## sub-heading
- Background and an in-depth analysis section (تحليل)
- Quotes or testimony where relevant
- Impact and implications
- A conclusion

WRITING:
- Professional, neutral and objective journalistic style
- Clear, well-structured sentences
- At least %d words
- End the body with a line stating that the article was written with the help of artificial intelligence (الذكاء الاصطناعي), followed by a line starting with "المصادر:" naming the source
%s
OUTPUT FORMAT:
Respond ONLY with a valid JSON object (no markdown, no text before or after) with exactly this structure:

{
  "title": "SEO-optimised title in Arabic",
  "summary": "Catchy 2-3 sentence summary (150-200 characters)",
  "category": "one of: %s",
  "content": "Full article in markdown with ## sub-headings",
  "metaDescription": "SEO description (150-160 characters)",
  "keywords": "keyword1, keyword2, keyword3, keyword4, keyword5",
  "author": "%s",
  "imageSearchTerms": "english keyword 1, english keyword 2, english keyword 3",
  "imageAlt": "Image description in Arabic"
}

IMPORTANT: respond ONLY with the JSON and make sure it is valid and complete.`

// BuildPrompt renders the article prompt for item.
func (g *Generator) BuildPrompt(item news.ScoredItem) string {
	words := fullWordTarget
	if g.cfg.IsTestModel() {
		words = testWordTarget
	}

	var extra strings.Builder
	if g.preset != nil {
		extra.WriteString("\nADDITIONAL INSTRUCTIONS:\n")
		if g.country != "" {
			fmt.Fprintf(&extra, "- Target country: %s\n", g.country)
		}
		for _, line := range g.preset.Instructions {
			fmt.Fprintf(&extra, "- %s\n", line)
		}
	} else if g.country != "" {
		fmt.Fprintf(&extra, "\nADDITIONAL INSTRUCTIONS:\n- Target country: %s\n", g.country)
	}

	category := item.Category
	if category == "" {
		category = news.DefaultCategory
	}

	return fmt.Sprintf(articlePrompt,
		item.Title,
		item.Summary,
		category,
		item.Source,
		item.Link,
		words,
		extra.String(),
		strings.Join(news.Categories, ", "),
		g.cfg.Author,
	)
}
