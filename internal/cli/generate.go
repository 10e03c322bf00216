package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/softia/softia-go/internal/models"
	"github.com/softia/softia-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	generateNumSamples int
	generateDocFiles   []string
	generateOutputFile string
)

var generateCmd = &cobra.Command{
	Use:   "generate <use case>",
	Short: "Generate an instruction dataset for a use case",
	Long: `Generate a synthetic instruction dataset for a use case without training.

The dataset is printed as JSON, or written to a file with --output. Pass
--doc to seed generation with example documents.

Examples:
  softia generate "customer support for a bank"
  softia generate "password reset help" -n 50 -o dataset.json
  softia generate "internal wiki QA" --doc handbook.txt --doc faq.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&generateNumSamples, "num-samples", "n", 10, "number of examples to generate")
	generateCmd.Flags().StringSliceVar(&generateDocFiles, "doc", nil, "document file to seed generation (repeatable)")
	generateCmd.Flags().StringVarP(&generateOutputFile, "output", "o", "", "write dataset to file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	useCase := args[0]
	ctx := context.Background()

	gen, err := buildGenerator()
	if err != nil {
		return err
	}

	seeds, err := seedsFromFiles(generateDocFiles)
	if err != nil {
		return err
	}

	ds, err := gen.Generate(ctx, useCase, generateNumSamples, seeds)
	if err != nil {
		return fmt.Errorf("generate dataset: %w", err)
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	if generateOutputFile != "" {
		if err := os.WriteFile(generateOutputFile, data, 0644); err != nil {
			return fmt.Errorf("write dataset: %w", err)
		}
		fmt.Printf("Wrote %d examples to %s\n", len(ds), generateOutputFile)
		return nil
	}

	fmt.Println(string(data))
	return nil
}

// seedsFromFiles reads document files and derives seed examples the same way
// the training pipeline does.
func seedsFromFiles(paths []string) ([]models.Example, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	docs := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}
		docs = append(docs, string(data))
	}
	return service.SeedExamplesFromDocuments(docs)
}
