// Package extract turns message bodies into the plain text that gets classified.
// Plain text is checked for valid UTF-8; HTML e-mail bodies are reduced to their text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ErrInvalidUTF8 is returned when a plain text body is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

// Format selects how a body is interpreted.
type Format int

const (
	// FormatAuto detects HTML by its leading markup and treats everything else as plain text
	FormatAuto Format = iota
	// FormatPlain passes UTF-8 text through unchanged
	FormatPlain
	// FormatHTML converts HTML to text
	FormatHTML
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatPlain:
		return "plain"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as accepted on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "plain", "text":
		return FormatPlain, nil
	case "html":
		return FormatHTML, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q (want auto, plain or html)", s)
	}
}

// Options control HTML extraction.
type Options struct {
	Format      Format
	Selector    string   // CSS selector narrowing the HTML to convert
	MainContent bool     // keep only the readable main content (go-readability)
	BaseURL     *url.URL // resolves relative links during main content extraction
}

// ToText reads a message body and returns its text.
//
// Parameters:
//   - content: the raw body
//   - opts: format and HTML extraction options
//
// Returns the text, ErrInvalidUTF8 for undecodable plain text, or an extraction error.
func ToText(content io.Reader, opts Options) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}

	format := opts.Format
	if format == FormatAuto {
		format = detectFormat(data)
	}

	if format == FormatPlain {
		if !utf8.Valid(data) {
			return "", ErrInvalidUTF8
		}
		return string(data), nil
	}

	// a selector overrides main content extraction
	if opts.Selector != "" {
		return extractWithSelector(bytes.NewReader(data), opts.Selector)
	}
	if opts.MainContent {
		return extractMainContent(bytes.NewReader(data), opts.BaseURL)
	}
	return convertToText(string(data))
}

// detectFormat recognizes HTML documents by their leading markup.
func detectFormat(data []byte) Format {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(bytes.TrimSpace(head))
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return FormatHTML
	}
	return FormatPlain
}

// extractMainContent uses go-readability to keep the main body of the message
func extractMainContent(content io.Reader, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	article, err := readability.FromReader(content, baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract main content: %w", err)
	}

	return convertToText(article.Content)
}

// extractWithSelector uses a CSS selector to extract specific content
func extractWithSelector(content io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements found matching selector: %s", selector)
	}

	var htmlParts []string
	selection.Each(func(i int, s *goquery.Selection) {
		html, err := s.Html()
		if err == nil {
			tagName := goquery.NodeName(s)
			htmlParts = append(htmlParts, fmt.Sprintf("<%s>%s</%s>", tagName, html, tagName))
		}
	})

	if len(htmlParts) == 0 {
		return "", fmt.Errorf("failed to extract HTML from selection")
	}

	return convertToText(strings.Join(htmlParts, "\n"))
}

// convertToText converts HTML to Markdown-flavoured text. Link targets and images are
// dropped; only what a reader would see is kept for classification.
func convertToText(htmlString string) (string, error) {
	converter := md.NewConverter("", true, nil)

	converter.Use(md.Plugin(func(c *md.Converter) []md.Rule {
		return []md.Rule{
			{
				Filter: []string{"a"},
				Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
					text := strings.TrimSpace(content)
					return &text
				},
			},
			{
				Filter: []string{"img", "style", "script"},
				Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
					empty := ""
					return &empty
				},
			},
		}
	}))

	markdown, err := converter.ConvertString(htmlString)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to text: %w", err)
	}

	cleaned := strings.TrimSpace(markdown)
	for strings.Contains(cleaned, "\n\n\n") {
		cleaned = strings.ReplaceAll(cleaned, "\n\n\n", "\n\n")
	}
	return cleaned, nil
}
