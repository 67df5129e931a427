package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensorable/yololbl"
)

func classesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classes [classes.txt]",
		Short: "List the class indices of a class list (defaults to the configured classes_file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.ClassesFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no class list given and no classes_file configured")
			}

			r, err := yololbl.LoadClassList(path, opts.enc)
			if err != nil {
				return err
			}
			for i, l := range r.Labels() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, l)
			}
			return nil
		},
	}
}
