package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mproffitt/folden/pkg/server"
	"github.com/spf13/cobra"
)

func printWarnings(w io.Writer, res server.Result) {
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func newRegisterCommand(cc *commandContext) *cobra.Command {
	var (
		handlerType string
		workflow    string
		overwrite   bool
		start       bool
	)

	cmd := &cobra.Command{
		Use:   "register [directory]",
		Short: "Register a directory with a handler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryArg(args)
			if err != nil {
				return err
			}
			configPath, err := filepath.Abs(workflow)
			if err != nil {
				return err
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			res, err := client.Register(cmd.Context(), server.RegisterRequest{
				Directory:         dir,
				HandlerTypeName:   handlerType,
				HandlerConfigPath: configPath,
				Overwrite:         overwrite,
				Start:             start,
			})
			printWarnings(cmd.ErrOrStderr(), res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s handler on %s\n", handlerType, dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&handlerType, "type", "t", "workflow", "Handler type, see folden types")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow config file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing registration")
	cmd.Flags().BoolVar(&start, "start", false, "Start the handler once registered")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

func newStartCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start [directory]",
		Short: "Start the handler of a registered directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryArg(args)
			if err != nil {
				return err
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			res, err := client.Start(cmd.Context(), dir)
			printWarnings(cmd.ErrOrStderr(), res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started handler on %s\n", dir)
			return nil
		},
	}
}

func newStopCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [directory]",
		Short: "Stop the handler of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryArg(args)
			if err != nil {
				return err
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			if err := client.Stop(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopping handler on %s\n", dir)
			return nil
		},
	}
}

func newModifyCommand(cc *commandContext) *cobra.Command {
	var handlerType, workflow string

	cmd := &cobra.Command{
		Use:   "modify [directory]",
		Short: "Change the handler type or workflow of a registered directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if handlerType == "" && workflow == "" {
				return fmt.Errorf("nothing to modify, pass --type and/or --workflow")
			}
			dir, err := directoryArg(args)
			if err != nil {
				return err
			}
			var configPath string
			if workflow != "" {
				if configPath, err = filepath.Abs(workflow); err != nil {
					return err
				}
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			res, err := client.Modify(cmd.Context(), server.ModifyRequest{
				Directory:         dir,
				HandlerTypeName:   handlerType,
				HandlerConfigPath: configPath,
			})
			printWarnings(cmd.ErrOrStderr(), res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Modified handler on %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&handlerType, "type", "t", "", "New handler type")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "New workflow config file")
	return cmd
}

func newStatusCommand(cc *commandContext) *cobra.Command {
	var all, asTable bool

	cmd := &cobra.Command{
		Use:   "status [directory]",
		Short: "Show the handler registered on a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if !all {
				var err error
				if dir, err = directoryArg(args); err != nil {
					return err
				}
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context(), dir, all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderStatus(out, status, asTable || isTerminal(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every registered directory")
	cmd.Flags().BoolVar(&asTable, "table", false, "Render as a table even when not on a terminal")
	return cmd
}

func newTraceCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trace [directory]",
		Short: "Follow the actions run by the handler of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryArg(args)
			if err != nil {
				return err
			}
			client, err := cc.client()
			if err != nil {
				return err
			}
			records, err := client.Trace(cmd.Context(), dir)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			for record := range records {
				if err := encoder.Encode(record); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Trace of %s ended\n", dir)
			return nil
		},
	}
}

func newTypesCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the handler types the daemon accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cc.client()
			if err != nil {
				return err
			}
			types, err := client.Types(cmd.Context())
			if err != nil {
				return err
			}
			renderTypes(cmd.OutOrStdout(), types, isTerminal(cmd.OutOrStdout()))
			return nil
		},
	}
}
