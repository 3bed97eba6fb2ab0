package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotientlab/quotient"
)

var infoCmd = &cobra.Command{
	Use:   "info [models...]",
	Short: "Print states, transitions and labels of explicit-state models",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide model base paths")
			os.Exit(1)
		}

		config, err := loadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		kind, err := config.kind()
		if err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}

		failed := false
		for _, base := range args {
			m, err := quotient.ReadModel(kind, base+".tra", base+".lab")
			if err != nil {
				logger.Error("Failed to read model", zap.String("model", base), zap.Error(err))
				failed = true
				continue
			}
			fmt.Println(headerStyle.Sprintf("%s (%s)", base, m.Kind()))
			fmt.Printf("%s %s\n", labelStyle.Sprint("states:     "), numberStyle.Sprint(m.NumberOfStates()))
			fmt.Printf("%s %s\n", labelStyle.Sprint("transitions:"), numberStyle.Sprint(m.NumberOfTransitions()))
			fmt.Printf("%s %s\n", labelStyle.Sprint("labels:     "), strings.Join(m.Labeling().Labels(), " "))
		}
		if failed {
			os.Exit(1)
		}
	},
}
