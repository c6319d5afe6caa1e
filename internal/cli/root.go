package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markbank/md2db/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "md2db",
	Short: "md2db — parallel ingestion of Markdown question banks into a document store",
	Long: `md2db converts large Markdown question banks into normalized question
records. Files are split into chunks at question boundaries, parsed on a
worker pool, and written in deduplicated batches. Interrupted runs resume
where they left off.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./md2db.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database file (default: ~/.md2db/md2db.db)")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("md2db")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("MD2DB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// No config file is fine; flags and env carry the configuration
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
}

// databasePath resolves the database file, creating the default directory
// when no explicit path was configured
func databasePath() (string, error) {
	if p := viper.GetString("db"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".md2db")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, "md2db.db"), nil
}

func openStore() (storage.Store, error) {
	path, err := databasePath()
	if err != nil {
		return nil, err
	}
	return storage.NewSQLiteStore(path)
}
