package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"iscfluence/pkg/config"
)

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config [file]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", path)
	return nil
}
