package migrator

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	codeBlockRegex     = regexp.MustCompile("```(?:(\\w+)\\n)?([\\s\\S]*?)```")
	inlineCodeRegex    = regexp.MustCompile("`([^`\n]+)`")
	boldStarRegex      = regexp.MustCompile(`\*\*([^\*]+)\*\*`)
	boldUnderlineRegex = regexp.MustCompile(`__([^_]+)__`)
	italicStarRegex    = regexp.MustCompile(`(^|[^\*])\*([^\*\n]+)\*([^\*]|$)`)
	italicUnderRegex   = regexp.MustCompile(`(^|[^_\w])_([^_\n]+)_([^_\w]|$)`)
	strikeRegex        = regexp.MustCompile(`~~([^~]+)~~`)
	linkRegex          = regexp.MustCompile(`\[([^\]]+)\]\(([^\)\s]+)\)`)
	placeholderRegex   = regexp.MustCompile("\x00(\\d+)\x00")
)

// renderMarkdown converts Rocket.Chat flavoured markdown to the HTML subset
// Matrix clients render. Code spans are cut out first so their content is
// left untouched by the inline rules.
func renderMarkdown(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	content := html.EscapeString(markdown)

	var protected []string
	protect := func(fragment string) string {
		protected = append(protected, fragment)
		return fmt.Sprintf("\x00%d\x00", len(protected)-1)
	}

	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		language, code := parts[1], strings.Trim(parts[2], "\n")
		if language != "" {
			return protect(`<pre><code class="language-` + language + `">` + code + "</code></pre>")
		}
		return protect("<pre><code>" + code + "</code></pre>")
	})
	content = inlineCodeRegex.ReplaceAllStringFunc(content, func(match string) string {
		return protect("<code>" + inlineCodeRegex.FindStringSubmatch(match)[1] + "</code>")
	})

	content = convertHeadings(content)
	content = strings.ReplaceAll(content, "\n", "<br>")
	content = boldStarRegex.ReplaceAllString(content, "<strong>$1</strong>")
	content = boldUnderlineRegex.ReplaceAllString(content, "<strong>$1</strong>")
	content = italicStarRegex.ReplaceAllString(content, "$1<em>$2</em>$3")
	content = italicUnderRegex.ReplaceAllString(content, "$1<em>$2</em>$3")
	content = strikeRegex.ReplaceAllString(content, "<del>$1</del>")
	content = convertLinks(content)

	return placeholderRegex.ReplaceAllStringFunc(content, func(match string) string {
		index, err := strconv.Atoi(placeholderRegex.FindStringSubmatch(match)[1])
		if err != nil || index >= len(protected) {
			return match
		}
		return protected[index]
	})
}

// convertHeadings turns "# Title" lines into <h1> to <h6> elements.
func convertHeadings(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' && level < 6 {
			level++
		}
		if level == 0 || level >= len(trimmed) || trimmed[level] != ' ' {
			continue
		}
		text := strings.TrimSpace(trimmed[level+1:])
		if text == "" {
			continue
		}
		lines[i] = fmt.Sprintf("<h%d>%s</h%d>", level, text, level)
	}
	return strings.Join(lines, "\n")
}

func convertLinks(content string) string {
	return linkRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := linkRegex.FindStringSubmatch(match)
		text, url := parts[1], html.UnescapeString(parts[2])
		if !isValidURL(url) {
			return match
		}
		return `<a href="` + html.EscapeString(url) + `">` + text + "</a>"
	})
}

// isValidURL accepts http, https, ftp and mailto links plus relative links,
// and rejects script and data schemes.
func isValidURL(url string) bool {
	if url == "" {
		return false
	}

	lower := strings.ToLower(url)
	for _, protocol := range []string{"http://", "https://", "ftp://", "mailto:"} {
		if strings.HasPrefix(lower, protocol) {
			return true
		}
	}
	for _, dangerous := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.HasPrefix(lower, dangerous) {
			return false
		}
	}
	return !strings.Contains(url, ":")
}

// formatText returns the HTML rendition of plain, or an empty string when the
// text has no formatting.
func formatText(plain string) string {
	rendered := renderMarkdown(plain)
	if rendered == strings.ReplaceAll(html.EscapeString(plain), "\n", "<br>") {
		return ""
	}
	return rendered
}
