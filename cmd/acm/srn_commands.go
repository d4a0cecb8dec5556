package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"acmsync/internal/srn"
)

func newSRNCommand(ctx *commandContext) *cobra.Command {
	srnCmd := &cobra.Command{
		Use:   "srn",
		Short: "Serial number allocation for this device",
	}
	srnCmd.AddCommand(newSRNStatusCommand(ctx))
	srnCmd.AddCommand(newSRNNextCommand(ctx))
	srnCmd.AddCommand(newSRNReserveCommand(ctx))
	return srnCmd
}

func newSRNStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the device id and the serial blocks held locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			alloc, err := ctx.allocator()
			if err != nil {
				return err
			}
			renderSRNState(cmd, alloc)
			return nil
		},
	}
}

func newSRNNextCommand(ctx *commandContext) *cobra.Command {
	var count int
	var offline bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Allocate serial numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			alloc, err := ctx.allocator()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				if !offline {
					if ok, err := alloc.PrepareForAllocation(cmd.Context()); !ok {
						return fmt.Errorf("prepare serial block: %w", err)
					}
				}
				value, err := alloc.Next(cfg.SRN.Prefix)
				if err != nil {
					if errors.Is(err, srn.ErrExhausted) {
						return fmt.Errorf("no serial numbers left after %d; run `acm srn reserve` with the server reachable", i)
					}
					return err
				}
				fmt.Fprintln(out, value)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of serials to allocate")
	cmd.Flags().BoolVar(&offline, "offline", false, "Allocate from local blocks only")
	return cmd
}

func newSRNReserveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve",
		Short: "Fetch serial blocks from the server until primary and backup are filled",
		RunE: func(cmd *cobra.Command, args []string) error {
			alloc, err := ctx.allocator()
			if err != nil {
				return err
			}
			ok, err := alloc.PrepareForAllocation(cmd.Context())
			if !ok {
				return fmt.Errorf("reserve serial block: %w", err)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if !alloc.HasBackup() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: backup block could not be fetched")
			}
			renderSRNState(cmd, alloc)
			return nil
		},
	}
}

func renderSRNState(cmd *cobra.Command, alloc *srn.Allocator) {
	st := alloc.State()
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	device := "-"
	if st.DeviceID != 0 {
		device = fmt.Sprintf("%d (%04X)", st.DeviceID, st.DeviceID)
	}
	fmt.Fprintln(out, renderField("Device id", device))
	fmt.Fprintln(out, renderField("Primary block", rangeLabel(st.Primary)))
	fmt.Fprintln(out, renderField("Backup block", rangeLabel(st.Backup)))
	if alloc.HasNext() {
		fmt.Fprintln(out, renderField("Next serial", fmt.Sprintf("%04X", st.Next)))
	}
	kind := statusOK
	msg := strconv.Itoa(alloc.Available()) + " serials"
	switch {
	case !alloc.HasNext():
		kind = statusError
	case !alloc.HasBackup():
		kind = statusWarn
		msg += ", no backup block"
	}
	fmt.Fprintln(out, renderStatusLine("Available", kind, msg, colorize))
}

func rangeLabel(r srn.Range) string {
	if r.Empty() {
		return ""
	}
	return fmt.Sprintf("%s (%d)", r.String(), r.Len())
}
