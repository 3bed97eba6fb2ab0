package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quotientlab/quotient"
)

const defaultConfigFile = ".quotient.yaml"

// Config is the yaml configuration of a minimization run. Command-line flags
// override it.
type Config struct {
	Kind        string   `yaml:"kind"` // dtmc or ctmc
	Type        string   `yaml:"type"` // strong or weak
	Labels      []string `yaml:"labels,omitempty"`
	KeepRewards bool     `yaml:"keep-rewards"`
	Bounded     bool     `yaml:"bounded"`
	Property    string   `yaml:"property,omitempty"`
}

func defaultConfig() Config {
	return Config{Kind: "dtmc", Type: "strong"}
}

func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		path = defaultConfigFile
		if _, err := os.Stat(path); err != nil {
			return config, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, nil
}

func (c Config) kind() (quotient.Kind, error) {
	switch c.Kind {
	case "", "dtmc":
		return quotient.DTMC, nil
	case "ctmc":
		return quotient.CTMC, nil
	default:
		return 0, fmt.Errorf("unknown model kind %q (want dtmc or ctmc)", c.Kind)
	}
}

// options derives the minimization options from the configuration: from the
// property when one is given, manually otherwise.
func (c Config) options(m *quotient.Model) (quotient.Options, error) {
	if c.Property != "" {
		opts, err := quotient.OptionsForProperty(m, c.Property)
		if err != nil {
			return quotient.Options{}, err
		}
		if c.Type == "weak" {
			opts.Type = quotient.Weak
		}
		return opts, nil
	}

	opts := quotient.NewOptions()
	switch c.Type {
	case "", "strong":
	case "weak":
		opts.Type = quotient.Weak
	default:
		return quotient.Options{}, fmt.Errorf("unknown bisimulation type %q (want strong or weak)", c.Type)
	}
	if len(c.Labels) > 0 {
		opts.RespectedAtomicPropositions = c.Labels
	}
	opts.KeepRewards = c.KeepRewards
	opts.Bounded = c.Bounded
	return opts, nil
}

// initCmd: quotient init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = defaultConfigFile
		}
		data, err := yaml.Marshal(defaultConfig())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Configuration file created: %s\n", path)
		return nil
	},
}
