package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mproffitt/folden/pkg/api"
	c "github.com/mproffitt/folden/pkg/config"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configFile string
	address    string
}

// loadConfig the daemon config named by --config, defaults when none is given
func (cc *commandContext) loadConfig(ctx context.Context) (*c.Config, error) {
	if cc.configFile == "" {
		config := c.Default()
		config.SetupLogging()
		return config, nil
	}
	return c.New(ctx, cc.configFile)
}

// daemonAddress --address, else the address from --config, else the default
func (cc *commandContext) daemonAddress() string {
	if cc.address != "" {
		return cc.address
	}
	if cc.configFile != "" {
		if data, err := os.ReadFile(cc.configFile); err == nil {
			if config, err := c.Parse(data); err == nil {
				return config.Address
			}
		}
	}
	return c.DefaultAddress
}

func (cc *commandContext) client() (*api.Client, error) {
	return api.NewClient(cc.daemonAddress())
}

// directoryArg the absolute form of the first argument, or of the working
// directory when none was given
func directoryArg(args []string) (string, error) {
	var dir string = "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	return filepath.Abs(dir)
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "folden",
		Short:         "Watch directories and run workflows on the files that land in them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configFile, "config", "c", "", "Daemon configuration file")
	rootCmd.PersistentFlags().StringVarP(&cc.address, "address", "a", "", "Daemon address, overrides the configured one")

	rootCmd.AddCommand(newDaemonCommand(cc))
	rootCmd.AddCommand(newRegisterCommand(cc))
	rootCmd.AddCommand(newStartCommand(cc))
	rootCmd.AddCommand(newStopCommand(cc))
	rootCmd.AddCommand(newModifyCommand(cc))
	rootCmd.AddCommand(newStatusCommand(cc))
	rootCmd.AddCommand(newTraceCommand(cc))
	rootCmd.AddCommand(newTypesCommand(cc))
	rootCmd.AddCommand(newGenerateCommand())
	return rootCmd
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
