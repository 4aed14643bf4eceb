// Package sanitize turns LLM answers, which are often markdown, into the plain
// text the bot sends to Telegram.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockBreaks = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?blockquote>|</li>`)
	listItems   = regexp.MustCompile(`<li>`)
	blankRuns   = regexp.MustCompile(`\n[ \t]*\n+`)
)

// Policy strips markdown and HTML from text.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewTelegramPolicy creates a Policy producing plain text suitable for a
// Telegram message without parse mode.
func NewTelegramPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// PlainText renders text as markdown and strips every tag, keeping block
// boundaries as line breaks and list items as "- " lines. On a rendering
// failure text is returned unchanged.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	rendered := listItems.ReplaceAllString(buf.String(), "- ")
	rendered = blockBreaks.ReplaceAllString(rendered, "\n")

	plain := p.policy.Sanitize(rendered)
	plain = html.UnescapeString(plain)
	plain = blankRuns.ReplaceAllString(plain, "\n\n")

	return strings.TrimSpace(plain)
}
