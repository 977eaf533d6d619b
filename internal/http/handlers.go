package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"kassa/internal/core"
	applog "kassa/internal/log"
)

// userID reads the acting user from the user_id query or form parameter.
func userID(r *http.Request) (int64, bool) {
	v := strings.TrimSpace(r.FormValue("user_id"))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// writeDomainError maps service errors to responses. Malformed input and
// unknown categories carry their message verbatim; everything else is a
// generic failure so storage details never leak.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *core.ParseError
	var notFound *core.CategoryNotFoundError
	switch {
	case errors.As(err, &parseErr), errors.As(err, &notFound):
		writeText(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	raw := r.FormValue("category")
	if strings.TrimSpace(raw) == "" {
		writeText(w, http.StatusBadRequest, "missing category")
		return
	}

	cat, err := s.registry.AddCategory(r.Context(), uid, raw)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if cat == nil {
		writeText(w, http.StatusConflict, "Category with this name already exists")
		return
	}
	s.invalidateReports(uid)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		applog.FieldUserID, uid, applog.FieldCategory, cat.Name)
	writeText(w, http.StatusCreated, "Category "+core.Capitalize(cat.Name)+" was added")
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	text, err := s.registry.CategoryList(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, text)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	name := core.NormalizeName(r.PathValue("name"))
	if name == "" {
		writeText(w, http.StatusBadRequest, "missing category name")
		return
	}

	cat, err := s.registry.GetCategory(r.Context(), uid, name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if cat == nil {
		writeText(w, http.StatusNotFound, (&core.CategoryNotFoundError{Name: name}).Error())
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), *cat); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(uid)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		applog.FieldUserID, uid, applog.FieldCategory, cat.Name)
	writeText(w, http.StatusOK, "Category "+core.Capitalize(cat.Name)+" and its expenses were deleted")
}

func (s *Server) handleAddExpenses(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		writeText(w, http.StatusBadRequest, "missing text")
		return
	}

	if err := s.ledger.AddExpense(r.Context(), uid, text); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(uid)
	writeText(w, http.StatusCreated, "Expenses were added")
}

func (s *Server) handleGetExpenses(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	windowParam := r.URL.Query().Get("window")
	if windowParam == "" {
		windowParam = "last"
	}
	window, err := core.ParseWindow(windowParam)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s.reportCacheKey(uid, window.String())
	if text, found := s.reportCache.Get(key); found {
		writeText(w, http.StatusOK, text)
		return
	}

	text, err := s.ledger.GetExpenses(r.Context(), uid, window)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.reportCache.Set(key, text)
	writeText(w, http.StatusOK, text)
}

func (s *Server) handleExpensesChart(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	windowParam := r.URL.Query().Get("window")
	if windowParam == "" {
		windowParam = "month"
	}
	window, err := core.ParseWindow(windowParam)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	if window == core.Last {
		writeText(w, http.StatusBadRequest, "chart requires a time window: today, month, or previous-month")
		return
	}

	totals, err := s.reporter.CategoryTotals(r.Context(), uid, window)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	png, err := s.charts.CategoryBars(window.String(), totals)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if png == nil {
		writeText(w, http.StatusOK, "There are no expenses yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleDeleteLast(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	msg, err := s.ledger.DeleteLast(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(uid)
	writeText(w, http.StatusOK, msg)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("amount")), 10, 64)
	if err != nil || amount < 0 {
		writeText(w, http.StatusBadRequest, "amount must be a non-negative integer")
		return
	}
	if err := s.reporter.SetBudget(r.Context(), uid, amount); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(uid)
	writeText(w, http.StatusOK, "Budget was set to "+strconv.FormatInt(amount, 10))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}
	amount, err := s.reporter.Budget(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, "Monthly budget: "+strconv.FormatInt(amount, 10))
}
