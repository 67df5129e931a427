package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensorable/yololbl"
	"github.com/sensorable/yololbl/internal/logger"
)

func verifyCmd() *cobra.Command {
	var unset, status bool

	c := &cobra.Command{
		Use:   "verify <annotation.txt>",
		Short: "Mark an annotation file as verified, or print its verification status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := yololbl.DefaultVerificationStore()

			if status {
				verified, found, err := store.LookupFor(args[0])
				if err != nil {
					logger.L().Warn("verified.unreadable", "path", args[0], "err", err)
				}
				switch {
				case err != nil || !found:
					fmt.Fprintln(cmd.OutOrStdout(), "unknown")
				case verified:
					fmt.Fprintln(cmd.OutOrStdout(), "verified")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "unverified")
				}
				return nil
			}

			return store.SetFor(args[0], !unset)
		},
	}

	c.Flags().BoolVar(&unset, "unset", false, "Clear the verified flag instead of setting it")
	c.Flags().BoolVar(&status, "status", false, "Print verified, unverified or unknown")
	return c
}
