package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/cmd/migrate"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/cmd/serve"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "redactions",
		Short: "Redaction resolution consensus service",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		migrate.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d",
		viper.GetBool("debug"), "Enable debug output")
}
