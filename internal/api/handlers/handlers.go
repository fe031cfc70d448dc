// Package handlers implements the HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/api/middleware"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/jobs"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Tracker is the part of tracker.Service the handlers use.
type Tracker interface {
	AddExpense(ctx context.Context, userID, text string, ov domain.Overrides) tracker.AddExpenseResult
	ViewExpenses(ctx context.Context, userID string, vf tracker.ViewFilters) tracker.ViewResult
	GetInsights(ctx context.Context, userID string, req tracker.InsightsRequest) tracker.InsightsResult
	Categories(ctx context.Context) ([]domain.Category, error)
}

// ExpensesHandler handles expense endpoints.
type ExpensesHandler struct {
	svc Tracker
	log zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(svc Tracker, log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{svc: svc, log: log}
}

type addExpenseRequest struct {
	Text          string           `json:"text"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Date          string           `json:"date,omitempty"`
	Category      string           `json:"category,omitempty"`
	Type          string           `json:"type,omitempty"`
	Description   string           `json:"description,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	Merchant      string           `json:"merchant,omitempty"`
	Location      string           `json:"location,omitempty"`
}

func (req addExpenseRequest) overrides() (domain.Overrides, error) {
	ov := domain.Overrides{
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Merchant:      req.Merchant,
		Location:      req.Location,
	}
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			return ov, err
		}
		ov.Date = &d
	}
	if req.Type != "" {
		k, err := parseKind(req.Type)
		if err != nil {
			return ov, err
		}
		ov.Kind = k
	}
	return ov, nil
}

// Create handles POST /api/expenses
func (h *ExpensesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ov, err := req.overrides()
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, tracker.AddExpenseResult{Message: tracker.Message(err)})
		return
	}

	res := h.svc.AddExpense(r.Context(), middleware.UserID(r.Context()), req.Text, ov)
	if !res.Success {
		middleware.WriteJSON(w, middleware.StatusFor(res.Err), res)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, res)
}

// List handles GET /api/expenses
func (h *ExpensesHandler) List(w http.ResponseWriter, r *http.Request) {
	vf, err := viewFilters(r)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, tracker.ViewResult{
			Expenses: []tracker.Expense{},
			Insights: []string{},
			Message:  tracker.Message(err),
		})
		return
	}

	res := h.svc.ViewExpenses(r.Context(), middleware.UserID(r.Context()), vf)
	middleware.WriteJSON(w, middleware.StatusFor(res.Err), res)
}

func viewFilters(r *http.Request) (tracker.ViewFilters, error) {
	q := r.URL.Query()
	vf := tracker.ViewFilters{
		Category:      q.Get("category"),
		PaymentMethod: q.Get("payment_method"),
	}
	var err error
	if vf.From, err = queryDate(q.Get("from"), "from"); err != nil {
		return vf, err
	}
	if vf.To, err = queryDate(q.Get("to"), "to"); err != nil {
		return vf, err
	}
	if vf.MinAmount, err = queryAmount(q.Get("min_amount"), "min_amount"); err != nil {
		return vf, err
	}
	if vf.MaxAmount, err = queryAmount(q.Get("max_amount"), "max_amount"); err != nil {
		return vf, err
	}
	if s := q.Get("type"); s != "" {
		if vf.Kind, err = parseKind(s); err != nil {
			return vf, err
		}
	}
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return vf, &domain.ValidationError{Field: "limit", Msg: "limit must be an integer"}
		}
		vf.Limit = n
	}
	return vf, nil
}

// InsightsHandler handles GET /api/insights.
type InsightsHandler struct {
	svc Tracker
	log zerolog.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(svc Tracker, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{svc: svc, log: log}
}

// Get handles GET /api/insights?type=&start=&end=&comparison=&recommendations=
func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := tracker.NewInsightsRequest(q.Get("type"))

	var err error
	if req.Start, err = queryDate(q.Get("start"), "start"); err == nil {
		req.End, err = queryDate(q.Get("end"), "end")
	}
	if err == nil {
		req.IncludeComparison, err = queryBool(q.Get("comparison"), "comparison", true)
	}
	if err == nil {
		req.IncludeRecommendations, err = queryBool(q.Get("recommendations"), "recommendations", true)
	}
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, tracker.InsightsResult{
			Recommendations: []string{},
			Message:         tracker.Message(err),
		})
		return
	}

	res := h.svc.GetInsights(r.Context(), middleware.UserID(r.Context()), req)
	middleware.WriteJSON(w, middleware.StatusFor(res.Err), res)
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	svc Tracker
	log zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(svc Tracker, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, log: log}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, middleware.StatusFor(err), tracker.Message(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// ReportsHandler enqueues report generation.
type ReportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{publisher: publisher, store: store, log: log}
}

// Enqueue handles POST /api/reports
func (h *ReportsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	kind, err := period.ParseKind(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, tracker.Message(err))
		return
	}
	if kind == period.Custom {
		middleware.WriteError(w, http.StatusBadRequest, "Custom periods cannot be scheduled as reports")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)
	job := &jobs.GenerateReportJob{UserID: userID, AnalysisType: string(kind)}
	if err := h.publisher.PublishGenerateReport(ctx, job); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue report job")
		return
	}
	jobID := job.JobID

	h.log.Info().Str("job_id", jobID).Str("user_id", userID).Msg("Report job enqueued")

	resp := map[string]string{"job_id": jobID, "status": string(jobs.JobStatusPending)}
	if saved, err := h.store.GetJob(ctx, jobID); err == nil {
		resp["status"] = string(saved.Status)
	}
	middleware.WriteJSON(w, http.StatusAccepted, resp)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are reported as
// missing.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil || job.UserID != middleware.UserID(ctx) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: middleware.UserID(ctx),
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func queryDate(s, field string) (*civil.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Err: domain.ErrInvalidDate}
	}
	return &d, nil
}

func queryAmount(s, field string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Msg: "must be a number"}
	}
	return &d, nil
}

func queryBool(s, field string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def, &domain.ValidationError{Field: field, Msg: "must be true or false"}
	}
	return b, nil
}

func parseKind(s string) (domain.Kind, error) {
	k, err := domain.ParseKind(s)
	if err != nil {
		return "", &domain.ValidationError{Field: "type", Err: err}
	}
	return k, nil
}
