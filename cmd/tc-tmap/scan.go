package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/devscan"
)

func newScanCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List connected devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devs, err := devscan.Scan(listPorts, devscan.Filter{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(devs) == 0 {
				if verbose {
					fmt.Fprintln(out, "no devices found")
				}
				return nil
			}
			for _, d := range devs {
				fmt.Fprintln(out, d.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "подробный вывод")
	return cmd
}
