package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/progress"
)

const (
	emptyInputMessage = "Please provide email content."

	spamBanner = "SPAM EMAIL DETECTED"
	hamBanner  = "LEGITIMATE EMAIL (HAM)"

	spamSummary = "This email appears to be spam based on our analysis."
	hamSummary  = "This email appears to be legitimate based on our analysis."

	rule = "=================================================="
)

func render(entries []Entry, cfg Config) (string, error) {
	switch cfg.OutputFormat {
	case JSON:
		return renderJSON(entries)
	case Markdown:
		return renderMarkdown(entries, cfg), nil
	default:
		return renderText(entries, cfg), nil
	}
}

func banner(label classify.Label) (string, string) {
	if label == classify.Spam {
		return spamBanner, spamSummary
	}
	return hamBanner, hamSummary
}

func renderText(entries []Entry, cfg Config) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if len(entries) > 1 {
			fmt.Fprintf(&b, "Source: %s\n", e.Source)
		}
		if e.Result == nil {
			fmt.Fprintf(&b, "%s\n", e.Message)
			continue
		}

		title, summary := banner(e.Result.Label)
		fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, title, rule)
		fmt.Fprintf(&b, "%s\n\n", summary)
		fmt.Fprintf(&b, "%s\n", progress.Bar(e.Result.Confidence, cfg.BarWidth))
		fmt.Fprintf(&b, "Confidence Score: %.2f%%\n", e.Result.Confidence*100)
		fmt.Fprintf(&b, "Posterior: ham %.2f%% | spam %.2f%%\n",
			e.Result.Posterior.Ham*100, e.Result.Posterior.Spam*100)
		b.WriteString(statsLine(e))
		if e.Preview != "" {
			fmt.Fprintf(&b, "Preview: %s\n", e.Preview)
		}

		if len(e.Terms) > 0 {
			b.WriteString("Top terms:\n")
			for _, t := range e.Terms {
				fmt.Fprintf(&b, "  %-16s %+.4f (%s)\n", t.Term, t.Delta, direction(t.Delta))
			}
		}
	}
	return b.String()
}

func renderMarkdown(entries []Entry, cfg Config) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", e.Source)
		if e.Result == nil {
			fmt.Fprintf(&b, "> %s\n", e.Message)
			continue
		}

		title, summary := banner(e.Result.Label)
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", title, summary)
		fmt.Fprintf(&b, "### Confidence Score: %.2f%%\n\n", e.Result.Confidence*100)
		fmt.Fprintf(&b, "`%s`\n\n", progress.Bar(e.Result.Confidence, cfg.BarWidth))
		b.WriteString("| Class | Probability |\n|---|---|\n")
		fmt.Fprintf(&b, "| ham | %.2f%% |\n| spam | %.2f%% |\n\n",
			e.Result.Posterior.Ham*100, e.Result.Posterior.Spam*100)
		fmt.Fprintf(&b, "_%s_", strings.TrimSpace(statsLine(e)))
		b.WriteString("\n")
		if e.Preview != "" {
			fmt.Fprintf(&b, "\n<details><summary>Preview</summary>\n\n%s\n\n</details>\n", e.Preview)
		}

		if len(e.Terms) > 0 {
			b.WriteString("\n| Term | Contribution |\n|---|---|\n")
			for _, t := range e.Terms {
				fmt.Fprintf(&b, "| %s | %+.4f |\n", t.Term, t.Delta)
			}
		}
	}
	return b.String()
}

func renderJSON(entries []Entry) (string, error) {
	data, err := json.MarshalIndent(struct {
		Results []Entry `json:"results"`
	}{Results: entries}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data) + "\n", nil
}

func statsLine(e Entry) string {
	line := fmt.Sprintf("Input: %d words, %d characters", e.Stats.Words, e.Stats.Characters)
	if e.Stats.Tokens > 0 {
		line += fmt.Sprintf(", %d tokens", e.Stats.Tokens)
	}
	if e.Result != nil {
		line += fmt.Sprintf(", %d known terms", e.Result.Features)
	}
	return line + "\n"
}

func direction(delta float64) string {
	if delta > 0 {
		return "spam"
	}
	return "ham"
}
