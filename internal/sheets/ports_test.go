package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"expenses/internal/core"
)

func TestRows(t *testing.T) {
	rows := Rows([]core.Expense{{ID: 7, Title: "Coffee", Amount: 5, Category: "Food"}})

	assert.Equal(t, [][]any{
		{"ID", "Title", "Amount", "Category"},
		{"7", "Coffee", int64(5), "Food"},
	}, rows)
}

func TestRowsEmpty(t *testing.T) {
	assert.Equal(t, [][]any{Header}, Rows(nil))
}
