package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items, total, err := s.transactions.List(r.Context(), q.Filter, q.Limit, q.Offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().
		Data(items).
		Pagination(NewPagination(total, q.Limit, q.Offset)).
		Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := parseTransactionBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.transactions.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logChange(r, log.OpCreate, t)

	NewJSONResponse().
		Status(http.StatusCreated).
		Data(t).
		Message("Transaction created successfully").
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().Data(t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := core.ParseID(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	in, err := parseTransactionBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.transactions.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logChange(r, log.OpUpdate, t)

	NewJSONResponse().
		Data(t).
		Message("Transaction updated successfully").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)

	NewJSONResponse().
		Data(map[string]string{"id": id}).
		Message("Transaction deleted successfully").
		Write(w)
}

func logChange(r *http.Request, op string, t core.Transaction) {
	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransactionChanged(ctx, op, t.ID, t.Type.String(), t.Amount.Cents, t.Category)
}
