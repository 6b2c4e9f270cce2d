package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"approvals/internal/view"
)

func approvalLabel(approved bool) string {
	if approved {
		return "approved"
	}
	return "not approved"
}

func renderOptions(w io.Writer, snap view.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, o := range snap.SelectOptions {
		id := o.Employee.ID
		if id == "" {
			id = "all"
		}
		fmt.Fprintf(tw, "%s\t%s\n", id, o.Label)
	}
	tw.Flush()
}

func renderSnapshot(w io.Writer, snap view.Snapshot) {
	fmt.Fprintf(w, "view: %s\n", snap.Mode)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tEMPLOYEE\tMERCHANT\tAMOUNT\tAPPROVED")
	for _, tx := range snap.Transactions {
		mark := " "
		if tx.Approved {
			mark = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t[%s]\n",
			tx.ID, tx.Date, tx.Employee.FullName(), tx.Merchant, tx.Amount.StringFixed(2), mark)
	}
	tw.Flush()

	switch {
	case len(snap.Transactions) == 0:
		fmt.Fprintln(w, "no transactions")
	case snap.HasNextPage:
		fmt.Fprintf(w, "%d shown, more available\n", len(snap.Transactions))
	default:
		fmt.Fprintf(w, "%d shown\n", len(snap.Transactions))
	}
}
