package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	cfgFile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quotient",
	Short: "quotient - bisimulation minimization for probabilistic models",
	Long: `quotient reduces DTMCs, CTMCs and MDPs to their bisimulation quotient:
the smallest model indistinguishable from the original under the properties
you want to preserve.`,
}

func Execute() error {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the configuration file")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(minimizeCmd)
	rootCmd.AddCommand(infoCmd)
}
