package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/novacare/fallguard-go/cmd"
	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/logging"
)

func main() {
	// Load the configuration first, detection must not start with
	// undefined thresholds
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init()
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
		logging.SetLevel(level)
	}

	if settings.Main.Log.Enabled {
		closeLog, err := logging.SetFileOutput(&settings.Main.Log, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file %s: %v\n", settings.Main.Log.Path, err)
			os.Exit(1)
		}
		defer func() {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
			}
		}()
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
		os.Exit(1)
	}
}
