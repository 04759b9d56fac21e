package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/novacare/fallguard-go/cmd/realtime"
	"github.com/novacare/fallguard-go/internal/buildinfo"
	"github.com/novacare/fallguard-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fallguard",
		Short:   "FallGuard-Go CLI",
		Version: fmt.Sprintf("%s (built %s)", buildinfo.Version, buildinfo.BuildDate),
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(realtime.Command(settings))

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().Float64VarP(&settings.Detector.AlertThreshold, "threshold", "t", viper.GetFloat64("detector.alertthreshold"), "Confidence threshold for fall alerts, value between 0.1 to 1.0")
	rootCmd.PersistentFlags().Float64Var(&settings.Detector.CooldownSeconds, "cooldown", viper.GetFloat64("detector.cooldownseconds"), "Refractory period in seconds after an alert")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
