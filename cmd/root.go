package cmd

import (
	"fmt"
	"os"

	"compat-merger/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "compat-merger",
	Short: "Heroes V mod compatibility patch merger",
	Long: `compat-merger scans a Heroes of Might and Magic V installation, merges the
maps, heroes and creatures supplied by every installed archive and writes a
single compatibility patch into the user mods folder.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config gives readable
		// timestamps for a CLI user.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
