package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/server"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runningLabel(running bool) string {
	if running {
		return "RUNNING"
	}
	return "DOWN"
}

func renderStatus(w io.Writer, status map[string]server.Summary, asTable bool) {
	if len(status) == 0 {
		fmt.Fprintln(w, "No handler registered on directory|file system")
		return
	}

	dirs := make([]string, 0, len(status))
	for dir := range status {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	if !asTable {
		for _, dir := range dirs {
			s := status[dir]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dir, runningLabel(s.Running), s.HandlerTypeName, s.HandlerConfigPath)
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Directory", "Status", "State", "Handler", "Workflow"})
	for _, dir := range dirs {
		s := status[dir]
		tw.AppendRow(table.Row{dir, runningLabel(s.Running), s.State, s.HandlerTypeName, s.HandlerConfigPath})
	}
	fmt.Fprintln(w, tw.Render())
}

func renderTypes(w io.Writer, types []handler.HandlerType, asTable bool) {
	if !asTable {
		for _, t := range types {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Type", "Description", "Actions"})
	for _, t := range types {
		actions := strings.Join(t.Actions, ", ")
		if actions == "" {
			actions = "any"
		}
		tw.AppendRow(table.Row{t.Name, t.Description, actions})
	}
	fmt.Fprintln(w, tw.Render())
}
