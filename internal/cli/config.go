package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dirlisting/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the dirlisting configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyGlobalFlags(cfg)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Nick: %s\n", cfg.Listing.Nick)
			fmt.Fprintf(w, "Dupes In File List: %v\n", cfg.Listing.DupesInFilelist)
			fmt.Fprintf(w, "Auto Download Rules: %v\n", cfg.Listing.UseADL)
			fmt.Fprintf(w, "Skip Zero Byte: %v\n", cfg.Listing.SkipZeroByte)
			fmt.Fprintf(w, "Diff Leftover Limit: %d KiB\n", cfg.Listing.SkipSubtractKiB)
			fmt.Fprintf(w, "Search Idle Timeout: %s\n", cfg.Search.IdleTimeout)
			fmt.Fprintf(w, "Search No Result Timeout: %s\n", cfg.Search.NoResultTimeout)
			fmt.Fprintf(w, "Share Database: %s\n", cfg.Share.Database)
			fmt.Fprintf(w, "S3 Sources: %v\n", cfg.Sources.S3.Enabled)
			fmt.Fprintf(w, "Metrics Address: %s\n", cfg.Metrics.Addr)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}
}
