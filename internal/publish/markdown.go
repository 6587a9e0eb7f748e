package publish

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// HTMLToText flattens HTML item bodies (common in RSS feeds) into readable
// markdown-ish text before channel-specific escaping is applied.
func HTMLToText(html string) (string, error) {
	if html == "" {
		return "", nil
	}
	// Fast path: if there's no tag-ish content, avoid converting (and
	// potentially escaping) plain text.
	if !strings.Contains(html, "<") {
		return html, nil
	}

	conv := converter.NewConverter(
		converter.WithEscapeMode("disabled"),
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	text, err := conv.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
