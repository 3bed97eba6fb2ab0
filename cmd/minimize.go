package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotientlab/quotient"
)

var (
	minimizeProperty string
	minimizeWeak     bool
	minimizeLabels   string
	minimizeRewards  bool
	minimizeNoBuild  bool
	minimizeCtmc     bool
)

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	numberStyle = color.New(color.FgGreen, color.Bold)
	labelStyle  = color.New(color.FgYellow)
)

var minimizeCmd = &cobra.Command{
	Use:   "minimize [models...]",
	Short: "Compute the bisimulation quotient of explicit-state models",
	Long: `Minimize one or more explicit-state models given as base paths: for each
argument PATH, the transitions are read from PATH.tra and the labels from
PATH.lab.

Example: quotient minimize --property 'P=? [ F "one" ]' examples/die`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide model base paths")
			os.Exit(1)
		}

		config, err := loadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		applyMinimizeFlags(&config)

		var bar *progressbar.ProgressBar
		if len(args) > 1 {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("minimizing"),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
		}

		failed := false
		for _, base := range args {
			if err := minimizeModel(base, config); err != nil {
				logger.Error("Minimization failed", zap.String("model", base), zap.Error(err))
				failed = true
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	minimizeCmd.Flags().StringVarP(&minimizeProperty, "property", "p", "", "Property to preserve, e.g. 'P=? [ F \"goal\" ]'")
	minimizeCmd.Flags().BoolVar(&minimizeWeak, "weak", false, "Use weak bisimulation")
	minimizeCmd.Flags().StringVar(&minimizeLabels, "labels", "", "Comma-separated labels to respect (default: all)")
	minimizeCmd.Flags().BoolVar(&minimizeRewards, "keep-rewards", false, "Preserve state rewards")
	minimizeCmd.Flags().BoolVar(&minimizeNoBuild, "no-quotient", false, "Only compute the partition, skip the quotient model")
	minimizeCmd.Flags().BoolVar(&minimizeCtmc, "ctmc", false, "Treat the model as a CTMC")
}

func applyMinimizeFlags(config *Config) {
	if minimizeProperty != "" {
		config.Property = minimizeProperty
	}
	if minimizeWeak {
		config.Type = "weak"
	}
	if minimizeLabels != "" {
		config.Labels = nil
		for _, label := range strings.Split(minimizeLabels, ",") {
			config.Labels = append(config.Labels, strings.TrimSpace(label))
		}
	}
	if minimizeRewards {
		config.KeepRewards = true
	}
	if minimizeCtmc {
		config.Kind = "ctmc"
	}
}

func minimizeModel(base string, config Config) error {
	kind, err := config.kind()
	if err != nil {
		return err
	}
	m, err := quotient.ReadModel(kind, base+".tra", base+".lab")
	if err != nil {
		return err
	}

	opts, err := config.options(m)
	if err != nil {
		return err
	}
	if minimizeNoBuild {
		opts.BuildQuotient = false
	}

	d, err := quotient.Minimize(m, opts)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Sprintf("%s (%s, %s bisimulation)", base, kind, opts.Type))
	fmt.Printf("%s %s -> %s\n",
		labelStyle.Sprint("states:     "),
		numberStyle.Sprint(m.NumberOfStates()),
		numberStyle.Sprint(d.NumBlocks()))
	if q, err := d.Quotient(); err == nil {
		fmt.Printf("%s %s -> %s\n",
			labelStyle.Sprint("transitions:"),
			numberStyle.Sprint(m.NumberOfTransitions()),
			numberStyle.Sprint(q.NumberOfTransitions()))
	}
	reduction := 100 * (1 - float64(d.NumBlocks())/float64(m.NumberOfStates()))
	fmt.Printf("%s %.1f%%\n", labelStyle.Sprint("reduction:  "), reduction)
	fmt.Printf("%s %s\n", labelStyle.Sprint("time:       "), d.Timings())
	return nil
}
