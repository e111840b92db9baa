package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calibration"
)

func newCalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cal",
		Short: "Seal and verify calibration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seal <body.yml> <out>",
		Short: "Append the integrity digest to a calibration body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			data, err := calibration.Seal(body)
			if err != nil {
				return err
			}
			c, err := calibration.Open(data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sealed %s: serial=%s counter_rate=%s\n", args[1], c.Serial, c.CounterRate)
			return nil
		},
	}, &cobra.Command{
		Use:   "verify <file>",
		Short: "Check the digest and print the calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := calibration.Load(args[0])
			if err != nil {
				return err
			}
			rate, _ := c.Rate()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: serial=%s counter_rate=%d\n", c.Serial, rate)
			return nil
		},
	})
	return cmd
}
