package sheets

import (
	"context"
	"strconv"

	"expenses/internal/core"
)

// Ports for outbound adapters.
type (
	// Mirror replaces the mirrored copy of the expenses table.
	Mirror interface {
		ReplaceAll(ctx context.Context, expenses []core.Expense) error
	}
)

// Header is the first row of a mirrored tab.
var Header = []any{"ID", "Title", "Amount", "Category"}

// Rows renders the header followed by one row per expense.
func Rows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	rows = append(rows, Header)
	for _, e := range expenses {
		rows = append(rows, []any{strconv.FormatInt(e.ID, 10), e.Title, e.Amount, e.Category})
	}
	return rows
}
