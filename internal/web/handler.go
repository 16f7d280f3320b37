package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"futsal-club/internal/models"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const actorHeader = "X-Actor-ID"

type Handler struct {
	schedules  service.ScheduleService
	attendance service.AttendanceService
	payroll    service.PayrollService
	invoices   service.InvoiceService
	notifier   service.Notifier
	validate   *validator.Validate
	now        service.Clock
	logger     *zap.Logger
}

func NewHandler(
	schedules service.ScheduleService,
	attendance service.AttendanceService,
	payroll service.PayrollService,
	invoices service.InvoiceService,
	notifier service.Notifier,
	validate *validator.Validate,
	now service.Clock,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		schedules:  schedules,
		attendance: attendance,
		payroll:    payroll,
		invoices:   invoices,
		notifier:   notifier,
		validate:   validate,
		now:        now,
		logger:     logger.Named("http"),
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/categories/{id}/matrix", h.AttendanceMatrix)
	mux.HandleFunc("GET /api/categories/{id}/schedules", h.ListSchedules)
	mux.HandleFunc("POST /api/categories/{id}/schedules", h.AddSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", h.RemoveSchedule)
	mux.HandleFunc("POST /api/sessions/{id}/attendance", h.RecordAttendance)
	mux.HandleFunc("POST /api/sheets/{id}/finalize", h.FinalizeSheet)
	mux.HandleFunc("GET /api/players/{id}/stats", h.PlayerStats)

	mux.HandleFunc("GET /api/categories/{id}/payroll", h.PayrollPreview)
	mux.HandleFunc("POST /api/categories/{id}/payroll", h.CommitPayroll)
	mux.HandleFunc("POST /api/salaries", h.CommitSalary)
	mux.HandleFunc("POST /api/salaries/{id}/{action}", h.SalaryAction)

	mux.HandleFunc("GET /api/invoices/preview", h.InvoicePreview)
	mux.HandleFunc("POST /api/invoices/generate", h.GenerateInvoices)
	mux.HandleFunc("POST /api/invoices/{id}/discount", h.ApplyDiscount)
	mux.HandleFunc("POST /api/invoices/{id}/receipt", h.SubmitReceipt)
	mux.HandleFunc("POST /api/invoices/{id}/confirm", h.ConfirmPayment)

	mux.HandleFunc("GET /api/users/{id}/notifications", h.UnreadNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkNotificationRead)

	return mux
}

type recordAttendanceRequest struct {
	Players []models.AttendanceEntry `json:"players" validate:"dive"`
	Coaches []models.AttendanceEntry `json:"coaches" validate:"dive"`
}

type commitSalaryRequest struct {
	CoachID    int64           `json:"coach_id" validate:"required,gt=0"`
	CategoryID int64           `json:"category_id" validate:"required,gt=0"`
	Year       int             `json:"year" validate:"required,gte=1"`
	Month      int             `json:"month" validate:"required,min=1,max=12"`
	Adjustment decimal.Decimal `json:"manual_adjustment"`
	Reason     string          `json:"adjustment_reason" validate:"max=500"`
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type discountRequest struct {
	Discount decimal.Decimal `json:"discount"`
}

type receiptRequest struct {
	ReceiptRef string `json:"receipt_ref" validate:"required,max=200"`
}

func (h *Handler) AttendanceMatrix(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	m, err := h.attendance.BuildAttendanceMatrix(r.Context(), categoryID, month, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list, err := h.schedules.ListSchedules(r.Context(), categoryID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	// Validated by the service once the category is set.
	var sc models.TrainingSchedule
	if !h.decodeJSON(w, r, &sc) {
		return
	}
	sc.CategoryID = categoryID
	if err := h.schedules.AddSchedule(r.Context(), &sc); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sc)
}

func (h *Handler) RemoveSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.schedules.RemoveSchedule(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req recordAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.attendance.RecordFullSession(r.Context(), sessionID, req.Players, req.Coaches, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) FinalizeSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	sheet, err := h.attendance.FinalizeSheet(r.Context(), sheetID, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sheet)
}

func (h *Handler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	stats, err := h.attendance.PlayerMonthlyStats(r.Context(), playerID, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) PayrollPreview(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	batch, err := h.payroll.CalculateAllForCategory(r.Context(), categoryID, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) CommitPayroll(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	batch, err := h.payroll.CommitAllForCategory(r.Context(), categoryID, month, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) CommitSalary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req commitSalaryRequest
	if !h.decode(w, r, &req) {
		return
	}
	month, err := jalali.NewMonth(req.Year, req.Month)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}
	b, err := h.payroll.CalculateSalary(r.Context(), req.CoachID, req.CategoryID, month, req.Adjustment, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	salary, err := h.payroll.CommitSalary(r.Context(), b, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"breakdown": b, "salary": salary})
}

func (h *Handler) SalaryAction(w http.ResponseWriter, r *http.Request) {
	salaryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var (
		salary *models.CoachSalary
		err    error
	)
	switch r.PathValue("action") {
	case "approve":
		salary, err = h.payroll.Approve(r.Context(), salaryID, actor)
	case "pay":
		salary, err = h.payroll.MarkPaid(r.Context(), salaryID, actor)
	case "confirm":
		salary, err = h.payroll.Confirm(r.Context(), salaryID, actor)
	case "dispute":
		var req disputeRequest
		if !h.decode(w, r, &req) {
			return
		}
		if err := h.payroll.Dispute(r.Context(), salaryID, actor, req.Reason); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	default:
		http.Error(w, "unknown salary action", http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, salary)
}

func (h *Handler) InvoicePreview(w http.ResponseWriter, r *http.Request) {
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	categoryID, ok := h.queryID(w, r, "category")
	if !ok {
		return
	}
	previews, err := h.invoices.Preview(r.Context(), month, categoryID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, previews)
}

func (h *Handler) GenerateInvoices(w http.ResponseWriter, r *http.Request) {
	month, ok := h.month(w, r)
	if !ok {
		return
	}
	categoryID, ok := h.queryID(w, r, "category")
	if !ok {
		return
	}
	if categoryID != 0 {
		batch, err := h.invoices.GenerateMonthlyInvoices(r.Context(), categoryID, month)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, batch)
		return
	}
	run, err := h.invoices.GenerateAllCategories(r.Context(), month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.ApplyDiscount(r.Context(), id, req.Discount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) SubmitReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.SubmitReceipt(r.Context(), id, req.ReceiptRef)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.ConfirmPayment(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list, err := h.notifier.ListUnread(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryID reads an optional positive id; absent means 0.
func (h *Handler) queryID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+key, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(actorHeader), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "missing or invalid "+actorHeader+" header", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// month reads ?year=&month=, defaulting to the current Jalali month.
func (h *Handler) month(w http.ResponseWriter, r *http.Request) (jalali.Month, bool) {
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		return jalali.CurrentMonth(h.now()), true
	}
	year, errY := strconv.Atoi(q.Get("year"))
	mon, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil {
		http.Error(w, "year and month must be numbers", http.StatusBadRequest)
		return jalali.Month{}, false
	}
	m, err := jalali.NewMonth(year, mon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return jalali.Month{}, false
	}
	return m, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !h.decodeJSON(w, r, dst) {
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return false
		}
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSheetFinalized),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateNotDefined),
		errors.Is(err, service.ErrSheetNotFound),
		errors.Is(err, service.ErrDiscountExceedsAmount),
		errors.Is(err, service.ErrNegativeAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, jalali.ErrInvalidDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
