package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/softia/softia-go/internal/client"
	"github.com/softia/softia-go/internal/serving"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List fine-tuned models",
	Long: `List fine-tuned models with their creation time and training metrics.

Examples:
  softia models`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	var infos []serving.ModelInfo
	var err error
	if serverURL != "" {
		infos, err = client.New(serverURL).Models(context.Background())
	} else {
		infos, err = serving.ListModels(cfg.Training.OutputBaseDir)
	}
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No fine-tuned models found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tTRAIN LOSS")
	for _, info := range infos {
		loss := "-"
		if v, ok := info.Metrics["train_loss"]; ok {
			loss = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Created.Format("2006-01-02 15:04"), loss)
	}
	return w.Flush()
}
