package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/workflow"
	"github.com/spf13/cobra"
)

// defaultWorkflowName file name used when generate is given no file
const defaultWorkflowName = "folden_workflow.toml"

// workflowPath where generate writes: a file path as given, a directory gets
// the default file name appended, nothing means the working directory.
func workflowPath(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, defaultWorkflowName)
	}
	return path, nil
}

func generateWorkflow(handlerType string, events, actions []string) (*workflow.Config, error) {
	if handlerType == "" {
		return workflow.Default(events, actions)
	}
	ht, ok := handler.DefaultRegistry.Lookup(handlerType)
	if !ok {
		return nil, fmt.Errorf("unknown handler type %q", handlerType)
	}
	if len(actions) == 0 {
		return workflow.Default(events, ht.Actions)
	}
	c, err := workflow.Default(events, actions)
	if err != nil {
		return nil, err
	}
	if err := ht.Check(c); err != nil {
		return nil, err
	}
	return c, nil
}

func newGenerateCommand() *cobra.Command {
	var (
		handlerType string
		events      []string
		actions     []string
	)

	cmd := &cobra.Command{
		Use:     "generate [path]",
		Aliases: []string{"gen"},
		Short:   "Generate a default workflow config",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			path, err := workflowPath(arg)
			if err != nil {
				return err
			}
			c, err := generateWorkflow(handlerType, events, actions)
			if err != nil {
				return err
			}
			if err := c.Generate(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote workflow config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&handlerType, "type", "t", "", "Generate the default workflow of a handler type")
	cmd.Flags().StringSliceVar(&events, "events", nil, fmt.Sprintf("Events to react to, any of %v", workflow.EventTypes))
	cmd.Flags().StringSliceVar(&actions, "actions", nil, fmt.Sprintf("Actions to run in order, any of %v", workflow.ActionTypes))
	return cmd
}
