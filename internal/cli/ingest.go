package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markbank/md2db/internal/pipeline"
	"github.com/markbank/md2db/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a Markdown question bank",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().Int("workers", 0, "concurrent parse workers (default: CPU count)")
	ingestCmd.Flags().Int64("chunk-size", 0, "target chunk size in bytes (default: 10MB)")
	ingestCmd.Flags().Int("batch-size", 0, "questions per bulk write (default: 1000)")
	ingestCmd.Flags().Int("retry-limit", 0, "maximum attempts per chunk (default: 3)")
	ingestCmd.Flags().Int64("scan-window", 0, "boundary scan window in bytes (default: 10000)")

	_ = viper.BindPFlag("workers", ingestCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("chunk_size", ingestCmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("batch_size", ingestCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("retry_limit", ingestCmd.Flags().Lookup("retry-limit"))
	_ = viper.BindPFlag("scan_window", ingestCmd.Flags().Lookup("scan-window"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	cfg := &pipeline.Config{
		Workers:         viper.GetInt("workers"),
		ChunkSizeBytes:  viper.GetInt64("chunk_size"),
		BatchSize:       viper.GetInt("batch_size"),
		RetryLimit:      viper.GetInt("retry_limit"),
		ScanWindowBytes: viper.GetInt64("scan_window"),
	}

	// Ctrl-C cancels the run; completed chunks stay persisted for resume
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := pipeline.New(store, nil)
	result, err := proc.Process(ctx, filePath, cfg)
	if result != nil {
		printSummary(result)
	}
	return err
}

func printSummary(result *types.ProcessResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("Questions written:   %s\n", green(result.QuestionsWritten))
	fmt.Printf("Duplicates absorbed: %d\n", result.QuestionsDuplicate)
	fmt.Printf("Chunks processed:    %d\n", result.ChunksProcessed)
	if result.ChunksSkipped > 0 {
		fmt.Printf("Chunks skipped:      %s (already done)\n", yellow(result.ChunksSkipped))
	}
	if result.ChunksFailed > 0 {
		fmt.Printf("Chunks failed:       %s\n", red(result.ChunksFailed))
		for _, cf := range result.FailedChunks {
			fmt.Printf("  bytes %d-%d after %d attempts: %s\n", cf.Start, cf.End, cf.Attempts, cf.Err)
		}
	}
	if len(result.WriteFailures) > 0 {
		fmt.Printf("Write failures:      %s\n", red(len(result.WriteFailures)))
	}
	for _, w := range result.Warnings {
		fmt.Printf("%s %s\n", yellow("warning:"), w)
	}
	fmt.Printf("Duration:            %s\n", result.Duration.Round(time.Millisecond))
}
