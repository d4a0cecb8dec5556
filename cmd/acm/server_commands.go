package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"acmsync/internal/checkoutapi"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var outOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every ACM the checkout server knows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			states, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if outOnly {
				kept := states[:0]
				for _, s := range states {
					if s.CheckedOut() {
						kept = append(kept, s)
					}
				}
				states = kept
			}
			if jsonOut {
				return writeJSON(cmd, states)
			}
			out := cmd.OutOrStdout()
			if len(states) == 0 {
				fmt.Fprintln(out, "No ACMs")
				return nil
			}
			rows := make([][]string, 0, len(states))
			for _, s := range states {
				rows = append(rows, []string{
					s.ACMName,
					s.LastInFileName,
					s.LastInName,
					formatWhen(s.LastInDate),
					joinNonEmpty("@", s.NowOutName, s.NowOutComputerName),
					formatWhen(s.NowOutDate),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ACM", "Revision", "Checked in by", "At", "Checked out by", "Since"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&outOnly, "checked-out", false, "Only show ACMs that are currently checked out")
	return cmd
}

func newRevokeCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "revoke <acm>",
		Short: "Forcibly clear the checkout of an ACM on the server",
		Long: "Revoke clears the server-side checkout so someone else can check the ACM out.\n" +
			"The holder's uncommitted changes can no longer be checked in.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("revoking %s discards the holder's pending check-in; pass --force to continue", acm)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Revoke(cmd.Context(), acm, checkoutapi.IdentityFromConfig(cfg))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case resp.OK():
				fmt.Fprintf(out, "Revoked checkout of %s\n", acm)
			case resp.NoDB():
				return fmt.Errorf("server does not know %s", acm)
			default:
				msg := strings.TrimSpace(resp.Message)
				if msg == "" {
					msg = resp.Status
				}
				return fmt.Errorf("revoke %s: %s", acm, msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm the revocation")
	return cmd
}
