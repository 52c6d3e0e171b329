package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/experience-hoarder/internal/code"
)

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Convert and enumerate experience codes",
	}
	cmd.AddCommand(newEncodeCmd(), newDecodeCmd(), newRangeCmd())
	return cmd
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <n>...",
		Short: "Print the canonical code for each non-negative integer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				n, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("parse %q: %w", arg, err)
				}
				c, err := code.FromInt(n)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <code>...",
		Short: "Print the integer value of each code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				c, err := code.Parse(arg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c.Int())
			}
			return nil
		},
	}
}

func newRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range <start> <end>",
		Short: "List the codes from start toward end (exclusive)",
		Long: `Lists codes the way a sweep visits them. The step defaults to -1 when start
is above end and +1 otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := code.Parse(args[0])
			if err != nil {
				return err
			}
			end, err := code.Parse(args[1])
			if err != nil {
				return err
			}
			step, err := cmd.Flags().GetInt64("step")
			if err != nil {
				return fmt.Errorf("read step flag: %w", err)
			}
			if step == 0 {
				step = 1
				if end.Less(start) {
					step = -1
				}
			}
			r, err := code.NewRange(start, end, step)
			if err != nil {
				return err
			}
			for c := range r.All() {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
	cmd.Flags().Int64("step", 0, "signed increment (0 picks the direction from the bounds)")
	return cmd
}
