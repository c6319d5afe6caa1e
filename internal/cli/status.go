package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection counts and store size",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	fmt.Printf("Questions: %d\n", status.QuestionsCount)
	fmt.Printf("Options:   %d\n", status.OptionsCount)
	fmt.Printf("Images:    %d\n", status.ImagesCount)
	fmt.Printf("Formulas:  %d\n", status.FormulasCount)
	fmt.Printf("Store:     %.2f MB\n", status.StoreSizeMB)
	return nil
}
