package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// Summary is a compact overview of every stored expense.
type Summary struct {
	Count      int              `json:"count"`
	Total      int64            `json:"total"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// Summarize aggregates expenses. Categories are ordered by amount, largest first,
// ties broken by name.
func Summarize(expenses []Expense) Summary {
	s := Summary{Count: len(expenses), ByCategory: []CategoryAmount{}}
	index := make(map[string]int)
	for _, e := range expenses {
		s.Total += e.Amount
		i, ok := index[e.Category]
		if !ok {
			i = len(s.ByCategory)
			index[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: e.Category})
		}
		s.ByCategory[i].Amount += e.Amount
		s.ByCategory[i].Count++
	}
	sort.SliceStable(s.ByCategory, func(a, b int) bool {
		if s.ByCategory[a].Amount != s.ByCategory[b].Amount {
			return s.ByCategory[a].Amount > s.ByCategory[b].Amount
		}
		return s.ByCategory[a].Name < s.ByCategory[b].Name
	})
	return s
}
