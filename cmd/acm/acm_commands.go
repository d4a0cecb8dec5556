package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"acmsync/internal/access"
	"acmsync/internal/checkoutapi"
	"acmsync/internal/revision"
)

type statusReport struct {
	ACM         string             `json:"acm"`
	Status      string             `json:"status"`
	Description string             `json:"description"`
	Current     string             `json:"current,omitempty"`
	Revisions   []string           `json:"revisions"`
	Server      *checkoutapi.State `json:"server,omitempty"`
	Marker      *access.Marker     `json:"marker,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <acm>",
		Short: "Show whether an ACM can be opened and who holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			return ctx.withController(cmd.Context(), acm, func(ctrl *access.Controller, status access.AccessStatus) error {
				report := statusReport{
					ACM:         ctrl.ACM(),
					Status:      status.String(),
					Description: status.Describe(),
					Current:     ctrl.Current(),
					Revisions:   ctrl.Revisions(),
					Server:      ctrl.ServerState(),
					Marker:      ctrl.Marker(),
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				renderStatusReport(cmd, report, status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func renderStatusReport(cmd *cobra.Command, report statusReport, status access.AccessStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, report.ACM)
	fmt.Fprintln(out, renderStatusLine("Access", accessKind(status), report.Description, colorize))
	fmt.Fprintln(out, renderField("Current revision", report.Current))
	fmt.Fprintln(out, renderField("Revisions", strconv.Itoa(len(report.Revisions))))
	if s := report.Server; s != nil {
		fmt.Fprintln(out, renderField("Last check-in", joinNonEmpty(" ", s.LastInFileName, lastInBy(*s))))
		if s.CheckedOut() {
			fmt.Fprintln(out, renderField("Checked out by", joinNonEmpty(" ", s.NowOutName, labeled("on", s.NowOutComputerName), labeled("since", formatWhen(s.NowOutDate)))))
		}
	}
	if m := report.Marker; m != nil {
		fmt.Fprintln(out, renderField("Local checkout", fmt.Sprintf("base %s, next %s", orNew(m.Base), m.Next)))
	}
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var sandbox bool
	var execLine string
	var commit bool

	cmd := &cobra.Command{
		Use:   "open <acm>",
		Short: "Check out an ACM into the local mirror, or open a sandbox copy",
		Long: "Open checks the ACM out and unpacks the current revision into the local mirror.\n" +
			"With --sandbox a throwaway copy is opened without touching the server; the copy\n" +
			"lives only while the --exec command (default $SHELL) runs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			if commit && sandbox {
				return errors.New("--commit cannot be combined with --sandbox")
			}
			if commit && strings.TrimSpace(execLine) == "" {
				return errors.New("--commit requires --exec")
			}
			return ctx.withController(cmd.Context(), acm, func(ctrl *access.Controller, status access.AccessStatus) error {
				result, err := ctrl.Open(cmd.Context(), sandbox)
				if !result.Success() {
					return openFailure(cmd, acm, sandbox, status, result, err)
				}
				h := ctrl.Handle()
				out := cmd.OutOrStdout()
				switch result {
				case access.OpenSandboxed:
					fmt.Fprintf(out, "Opened sandbox of %s (%s) at %s; changes will not be saved\n", h.ACM, h.Current, h.Dir)
				case access.OpenNewDB:
					fmt.Fprintf(out, "Created %s at %s; commit writes %s\n", h.ACM, h.Dir, h.Next)
				default:
					fmt.Fprintf(out, "Checked out %s (%s) at %s; commit writes %s\n", h.ACM, orNew(h.Current), h.Dir, h.Next)
				}

				line := strings.TrimSpace(execLine)
				if line == "" && !sandbox {
					return nil
				}
				if err := runInMirror(cmd, h, line); err != nil {
					return err
				}
				if commit {
					return commitOpen(cmd, ctrl)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "Open a read-only copy without checking out")
	cmd.Flags().StringVar(&execLine, "exec", "", "Shell command to run inside the opened directory")
	cmd.Flags().BoolVar(&commit, "commit", false, "Commit after the --exec command succeeds")
	return cmd
}

func openFailure(cmd *cobra.Command, acm string, sandbox bool, status access.AccessStatus, result access.OpenStatus, err error) error {
	if err == nil {
		err = errors.New(result.String())
	}
	if !sandbox && (result.CanSandbox() || status.CanSandbox()) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s cannot be checked out; `acm open --sandbox %s` opens a copy that will not be saved\n", acm, acm)
	}
	return fmt.Errorf("open %s: %w", acm, err)
}

// runInMirror runs line through the shell with the opened directory as its
// working directory. An empty line starts an interactive $SHELL.
func runInMirror(cmd *cobra.Command, h *access.Handle, line string) error {
	var child *exec.Cmd
	if line == "" {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		child = exec.CommandContext(cmd.Context(), shell)
	} else {
		child = exec.CommandContext(cmd.Context(), "/bin/sh", "-c", line)
	}
	child.Dir = h.Dir
	child.Stdin = cmd.InOrStdin()
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()
	child.Env = append(os.Environ(), "ACM_NAME="+h.ACM, "ACM_DIR="+h.Dir)
	if err := child.Run(); err != nil {
		return fmt.Errorf("run in %s: %w", h.Dir, err)
	}
	return nil
}

func newCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <acm>",
		Short: "Publish the local mirror as the next revision and check the ACM in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			return ctx.withController(cmd.Context(), acm, func(ctrl *access.Controller, status access.AccessStatus) error {
				if err := resumeCheckout(cmd.Context(), ctrl, status); err != nil {
					return err
				}
				return commitOpen(cmd, ctrl)
			})
		},
	}
}

func newDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <acm>",
		Short: "Abandon local changes and release the checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			return ctx.withController(cmd.Context(), acm, func(ctrl *access.Controller, status access.AccessStatus) error {
				if err := resumeCheckout(cmd.Context(), ctrl, status); err != nil {
					return err
				}
				result, err := ctrl.Discard(cmd.Context())
				switch result {
				case access.UpdateOK:
					fmt.Fprintf(cmd.OutOrStdout(), "Discarded local changes to %s; checkout released\n", acm)
					return nil
				case access.UpdateNetworkError:
					return fmt.Errorf("discard %s: server unreachable, checkout kept: %w", acm, err)
				default:
					return fmt.Errorf("discard %s: %w", acm, err)
				}
			})
		},
	}
}

// resumeCheckout reopens a checkout recorded by an earlier acm invocation.
func resumeCheckout(ctx context.Context, ctrl *access.Controller, status access.AccessStatus) error {
	if status != access.StatusCheckedOut {
		return fmt.Errorf("%s is not checked out on this computer (%s)", ctrl.ACM(), status.Describe())
	}
	result, err := ctrl.Open(ctx, false)
	if !result.Success() {
		if err == nil {
			err = errors.New(result.String())
		}
		return fmt.Errorf("reopen %s: %w", ctrl.ACM(), err)
	}
	return nil
}

func commitOpen(cmd *cobra.Command, ctrl *access.Controller) error {
	result, err := ctrl.Commit(cmd.Context())
	out := cmd.OutOrStdout()
	switch result {
	case access.UpdateOK:
		fmt.Fprintf(out, "Checked in %s as %s\n", ctrl.ACM(), ctrl.Current())
		return nil
	case access.UpdateNetworkError:
		fmt.Fprintf(cmd.ErrOrStderr(), "Changes to %s are still in %s; run `acm commit %s` again once the server is reachable\n",
			ctrl.ACM(), ctrl.MirrorDir(), ctrl.ACM())
		return fmt.Errorf("commit %s: %w", ctrl.ACM(), err)
	case access.UpdateDenied:
		return fmt.Errorf("commit %s: the checkout is no longer valid and the changes were not saved: %w", ctrl.ACM(), err)
	default:
		return fmt.Errorf("commit %s: %w", ctrl.ACM(), err)
	}
}

func newRevisionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "revisions <acm>",
		Short: "List the revisions kept in the shared store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acm, err := requireACM(args)
			if err != nil {
				return err
			}
			store, err := ctx.store()
			if err != nil {
				return err
			}
			names, err := store.List(cmd.Context(), acm)
			if err != nil {
				return fmt.Errorf("list revisions of %s: %w", acm, err)
			}
			names = revision.Sorted(names)
			if jsonOut {
				return writeJSON(cmd, names)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "%s has no revisions\n", acm)
				return nil
			}
			latest, _ := revision.Latest(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				n, _ := revision.ParseName(name)
				rows = append(rows, []string{strconv.Itoa(n), name, yesNo(name == latest)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Revision", "Current"}, rows, 0))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func lastInBy(s checkoutapi.State) string {
	if s.LastInName == "" {
		return ""
	}
	return joinNonEmpty(" ", labeled("by", s.LastInName), formatWhen(s.LastInDate))
}

func orNew(name string) string {
	if name == "" {
		return "new database"
	}
	return name
}
