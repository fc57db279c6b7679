package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().Data(summary).Write(w)
}

// handleAnalytics runs the four aggregate queries concurrently; the first
// failure cancels the rest and fails the request.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var out core.Analytics
	since := core.TrendsSince(s.now())

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		out.ExpenseBreakdown, err = s.analytics.CategoryBreakdown(ctx, core.Expense)
		return err
	})
	g.Go(func() (err error) {
		out.IncomeBreakdown, err = s.analytics.CategoryBreakdown(ctx, core.Income)
		return err
	})
	g.Go(func() (err error) {
		out.MonthlyTrends, err = s.analytics.MonthlyTrends(ctx, since)
		return err
	})
	g.Go(func() (err error) {
		out.RecentTransactions, err = s.analytics.Recent(ctx, RecentTransactions)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	typ, _, err := parseTypeParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	categories, err := s.analytics.Categories(r.Context(), typ)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().Data(categories).Write(w)
}
