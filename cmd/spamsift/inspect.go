package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/model"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load a model bundle and summarize it",
	Long: `Inspect loads and validates the configured model bundle and prints its summary.
With --export the bundle is written back out as a normalized artifact pair.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		setupLogger(cmd, settings, "error")

		bundle, err := model.Load(cmd.Context(), bundleSource(settings), bundleOptions(settings))
		if err != nil {
			return err
		}

		if err := printSummary(cmd.OutOrStdout(), bundle); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("export")
		if dir == "" {
			return nil
		}
		return exportBundle(bundle, dir)
	},
}

func printSummary(w io.Writer, bundle *model.Bundle) error {
	analyzer := bundle.Vectorizer.Analyzer()
	stopWords := analyzer.StopWords
	if stopWords == "" {
		stopWords = "none"
	}
	stemmer := analyzer.Stemmer
	if stemmer == "" {
		stemmer = "none"
	}

	_, err := fmt.Fprintf(w, `Bundle:          %s
Algorithm:       %s
Vocabulary size: %d
Min token:       %d
Stop words:      %s (+%d extra)
Stemmer:         %s
Sublinear TF:    %t
Norm:            %s
`,
		bundle.ID, bundle.Model.Name(), bundle.Vocabulary().Size(),
		analyzer.MinTokenLength, stopWords, len(analyzer.ExtraStopWords),
		stemmer, analyzer.SublinearTF, analyzer.Norm)
	if err != nil {
		return err
	}

	if linear, ok := bundle.Model.(*classify.Linear); ok {
		_, err = fmt.Fprintf(w, "Fallback:        %.2f\n", linear.FallbackConfidence())
	}
	return err
}

// exportBundle writes vocabulary.json and classifier.json into dir.
func exportBundle(bundle *model.Bundle, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	classifier, err := bundle.ExportClassifier()
	if err != nil {
		return err
	}

	write := func(name string, encode func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := encode(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return f.Close()
	}

	if err := write("vocabulary.json", func(w io.Writer) error {
		return model.WriteVocabulary(w, bundle.ExportVocabulary())
	}); err != nil {
		return err
	}
	if err := write("classifier.json", func(w io.Writer) error {
		return model.WriteClassifier(w, classifier)
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported bundle to %s\n", dir)
	return nil
}

func init() {
	inspectCmd.Flags().String("export", "", "Directory to write the normalized artifacts to")
}
