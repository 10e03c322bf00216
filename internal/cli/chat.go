package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/softia/softia-go/internal/client"
	"github.com/softia/softia-go/internal/serving"
	"github.com/spf13/cobra"
)

var (
	chatModel     string
	chatMaxLength int
)

var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Ask a fine-tuned model a question",
	Long: `Send a prompt to a fine-tuned model and print its answer.

Without --model the most recently trained model answers.

Examples:
  softia chat "How do I reset my password?"
  softia chat "Summarize the refund policy" --model finetuned_support_faq`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "fine-tuned model name")
	chatCmd.Flags().IntVar(&chatMaxLength, "max-length", 0, "maximum response length in tokens")
}

func runChat(cmd *cobra.Command, args []string) error {
	prompt := args[0]
	ctx := context.Background()

	if serverURL != "" {
		resp, err := client.New(serverURL).Chat(ctx, client.ChatRequest{
			Prompt:    prompt,
			Model:     chatModel,
			MaxLength: chatMaxLength,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Response)
		return nil
	}

	baseDir := cfg.Training.OutputBaseDir

	var modelPath string
	if chatModel != "" {
		modelPath = filepath.Join(baseDir, filepath.Base(chatModel))
	} else {
		latest, err := serving.LatestModelDir(baseDir)
		if err != nil {
			return err
		}
		modelPath = latest
	}

	cache := serving.NewCache(cfg.Serving)
	answer, err := cache.Predict(ctx, modelPath, prompt, chatMaxLength, 1)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
