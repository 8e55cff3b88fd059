package main

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `
Load the configuration the same way serve does and print the result as YAML.

Examples:
  responderd config -c responder.yml
  RESPONDER_IDENTITY_ADDR=10.0.0.1 responderd config -c responder.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags(), nil)
		if err != nil {
			return err
		}

		b, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	addIdentityFlags(configCmd.Flags())
	rootCmd.AddCommand(configCmd)
}
