package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"approvals/internal/core"
)

const shellHelp = `commands:
  show                 print the current view
  employees            list filter options
  select <id|all>      filter by employee, or show everyone
  more                 load the next page (ALL view only)
  approve <tx-id>      approve a transaction
  unapprove <tx-id>    clear a transaction's approval
  pending              approval edits made in the current filter
  help                 this text
  quit                 leave the shell`

func newShellCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over one cached view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.coord.Init(cmd.Context()); err != nil {
				return err
			}
			renderSnapshot(s.out, s.coord.Snapshot())
			return runShell(cmd.Context(), s, cmd.InOrStdin())
		},
	}
}

// runShell reads commands until quit or EOF. Command errors are printed
// and the session continues.
func runShell(ctx context.Context, s *session, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := s.exec(ctx, fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *session) exec(ctx context.Context, name string, args []string) (bool, error) {
	switch name {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "show":
		renderSnapshot(s.out, s.coord.Snapshot())
	case "employees":
		renderOptions(s.out, s.coord.Snapshot())
	case "select":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: select <id|all>")
		}
		if err := s.selectEmployee(ctx, args[0]); err != nil {
			return false, err
		}
		renderSnapshot(s.out, s.coord.Snapshot())
	case "more":
		if s.coord.Snapshot().IsFiltered {
			return false, fmt.Errorf("more is only available in the ALL view")
		}
		if err := s.coord.LoadMore(ctx); err != nil {
			return false, err
		}
		renderSnapshot(s.out, s.coord.Snapshot())
	case "approve", "unapprove":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <tx-id>", name)
		}
		approved := name == "approve"
		if err := s.coord.ToggleApproval(ctx, args[0], approved); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "%s %s\n", args[0], approvalLabel(approved))
	case "pending":
		s.renderPending()
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (s *session) selectEmployee(ctx context.Context, id string) error {
	if id == "all" {
		return s.coord.SelectEmployee(ctx, &core.EmptyEmployee)
	}
	e, ok := findEmployee(s.coord.Snapshot(), id)
	if !ok {
		return fmt.Errorf("unknown employee %q", id)
	}
	return s.coord.SelectEmployee(ctx, &e)
}

func (s *session) renderPending() {
	pending := s.coord.PendingOverrides()
	if len(pending) == 0 {
		fmt.Fprintln(s.out, "no pending edits")
		return
	}
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(s.out, "%s %s\n", id, approvalLabel(pending[id]))
	}
}
