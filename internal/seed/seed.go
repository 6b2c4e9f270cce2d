// Package seed provides the demo employees and transactions used by the
// memory and SQLite backends.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"approvals/internal/core"
)

//go:embed seed.yaml
var defaultSeed []byte

type transactionRecord struct {
	ID         string `yaml:"id"`
	EmployeeID string `yaml:"employeeId"`
	Merchant   string `yaml:"merchant"`
	Amount     string `yaml:"amount"`
	Date       string `yaml:"date"`
	Approved   bool   `yaml:"approved"`
}

type document struct {
	Employees    []core.Employee     `yaml:"employees"`
	Transactions []transactionRecord `yaml:"transactions"`
}

// Data is a parsed fixture. Transactions keep file order.
type Data struct {
	Employees    []core.Employee
	Transactions []core.Transaction
}

// Default returns the embedded fixture.
func Default() (*Data, error) {
	return Parse(defaultSeed)
}

// Load reads the fixture at path, or the embedded one when path is empty.
func Load(path string) (*Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML fixture and resolves each transaction's employee.
func Parse(raw []byte) (*Data, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	byID := make(map[string]core.Employee, len(doc.Employees))
	for _, e := range doc.Employees {
		if e.IsEmpty() {
			return nil, fmt.Errorf("seed employee %q: %w", e.FullName(), core.ErrEmptyEmployeeID)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("seed employee %q listed twice", e.ID)
		}
		byID[e.ID] = e
	}

	out := &Data{
		Employees:    doc.Employees,
		Transactions: make([]core.Transaction, 0, len(doc.Transactions)),
	}
	seen := make(map[string]struct{}, len(doc.Transactions))
	for _, r := range doc.Transactions {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("seed transaction: %w", core.ErrEmptyTransactionID)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("seed transaction %q listed twice", r.ID)
		}
		seen[r.ID] = struct{}{}

		emp, ok := byID[r.EmployeeID]
		if !ok {
			return nil, fmt.Errorf("seed transaction %q: unknown employee %q", r.ID, r.EmployeeID)
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed transaction %q amount: %w", r.ID, err)
		}
		out.Transactions = append(out.Transactions, core.Transaction{
			ID:       r.ID,
			Amount:   amount,
			Employee: emp,
			Merchant: r.Merchant,
			Date:     r.Date,
			Approved: r.Approved,
		})
	}
	return out, nil
}
