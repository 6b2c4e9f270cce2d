package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"approvals/internal/core"
	"approvals/internal/view"
)

type opener func(cmd *cobra.Command) (*session, error)

func newEmployeesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "employees",
		Short: "List the employees that can be used as a filter",
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
			renderOptions(s.out, s.coord.Snapshot())
			return nil
		},
	}
}

type listOptions struct {
	Employee string
	AllPages bool
}

func newListCmd(open opener) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list [--employee <id>] [--all-pages]",
		Short: "List transactions, optionally for one employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.coord.Init(ctx); err != nil {
				return err
			}
			if err := selectByID(cmd, s.coord, opts.Employee); err != nil {
				return err
			}
			if opts.AllPages {
				for s.coord.Snapshot().HasNextPage {
					if err := s.coord.LoadMore(ctx); err != nil {
						return err
					}
				}
			}
			renderSnapshot(s.out, s.coord.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Employee, "employee", "", "only show this employee's transactions")
	cmd.Flags().BoolVar(&opts.AllPages, "all-pages", false, "keep loading until the last page")
	return cmd
}

type approveOptions struct {
	Employee  string
	Unapprove bool
}

func newApproveCmd(open opener) *cobra.Command {
	var opts approveOptions

	cmd := &cobra.Command{
		Use:   "approve <transaction-id> [--unapprove]",
		Short: "Set the approval state of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("transaction id is required")
			}
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.coord.Init(ctx); err != nil {
				return err
			}
			if err := selectByID(cmd, s.coord, opts.Employee); err != nil {
				return err
			}
			approved := !opts.Unapprove
			if err := s.coord.ToggleApproval(ctx, id, approved); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s %s\n", id, approvalLabel(approved))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Employee, "employee", "", "apply the change inside this employee's filter")
	cmd.Flags().BoolVar(&opts.Unapprove, "unapprove", false, "clear the approval instead of setting it")
	return cmd
}

// selectByID applies the employee filter. An empty id keeps the ALL view.
func selectByID(cmd *cobra.Command, coord *view.Coordinator, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	e, ok := findEmployee(coord.Snapshot(), id)
	if !ok {
		return fmt.Errorf("unknown employee %q", id)
	}
	return coord.SelectEmployee(cmd.Context(), &e)
}

func findEmployee(snap view.Snapshot, id string) (core.Employee, bool) {
	for _, e := range snap.Employees {
		if e.ID == id {
			return e, true
		}
	}
	return core.Employee{}, false
}
