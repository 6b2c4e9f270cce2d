package google

import (
	"fmt"
	"strings"
	"time"

	ports "approvals/internal/sheets"
)

// parseLedgerRows converts a values matrix into ledger entries. Rows whose
// first cell is not an RFC 3339 timestamp (headers, notes) are skipped.
func parseLedgerRows(values [][]any) []ports.ApprovalEntry {
	var out []ports.ApprovalEntry
	for _, raw := range values {
		row := toStrings(raw)
		if len(row) < 4 {
			continue
		}
		at, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}
		e := ports.ApprovalEntry{
			RecordedAt:    at,
			EventID:       row[1],
			TransactionID: row[2],
			Approved:      strings.EqualFold(row[3], "APPROVED"),
			RequestID:     safeGet(row, 4),
		}
		if e.EventID == "" || e.TransactionID == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
