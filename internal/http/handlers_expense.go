package http

import (
	"net/http"

	"expenses/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.List(r.Context())
	if err != nil {
		FromError(r, log.OpList, err).Write(w)
		return
	}
	OK(expenses).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		FromError(r, log.OpCreate, err).Write(w)
		return
	}

	created, err := s.svc.Create(r.Context(), in)
	if err != nil {
		FromError(r, log.OpCreate, err).Write(w)
		return
	}
	OK(created).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		FromError(r, log.OpRead, err).Write(w)
		return
	}

	expense, err := s.svc.Get(r.Context(), id)
	if err != nil {
		FromError(r, log.OpRead, err).Write(w)
		return
	}
	OK(expense).Write(w)
}

// handleUpdateExpense replaces every field of an existing expense
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		FromError(r, log.OpUpdate, err).Write(w)
		return
	}
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		FromError(r, log.OpUpdate, err).Write(w)
		return
	}

	updated, err := s.svc.Update(r.Context(), id, in)
	if err != nil {
		FromError(r, log.OpUpdate, err).Write(w)
		return
	}
	OK(updated).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		FromError(r, log.OpDelete, err).Write(w)
		return
	}

	if err := s.svc.Delete(r.Context(), id); err != nil {
		FromError(r, log.OpDelete, err).Write(w)
		return
	}
	Message(msgDeleted).Write(w)
}

// handleSummary returns totals across all stored expenses
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		FromError(r, log.OpSummary, err).Write(w)
		return
	}
	OK(summary).Write(w)
}
