package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository/memstore"
	"futsal-club/internal/service"
	attendance_service "futsal-club/internal/service/attendance"
	invoice_service "futsal-club/internal/service/invoice"
	notification_service "futsal-club/internal/service/notification"
	payroll_service "futsal-club/internal/service/payroll"
	schedule_service "futsal-club/internal/service/schedule"
	"futsal-club/pkg/jalali"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	tehran = time.FixedZone("IRST", 3*3600+1800)
	now    = time.Date(2024, time.August, 5, 10, 0, 0, 0, tehran) // 1403/05/15
)

type testServer struct {
	store    *memstore.Store
	srv      *httptest.Server
	category *models.TrainingCategory
	player   *models.Player
	coach    *models.Coach
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	clock := func() time.Time { return now }
	log := zap.NewNop()
	v := validator.New()

	notifier := notification_service.NewNotificationService(s.Notifications(), s.Users(), nil, clock, log)
	schedules := schedule_service.NewScheduleService(s, s.Categories(), s.Schedules(), s.Sheets(), s.Sessions(), v, log)
	attendance := attendance_service.NewAttendanceService(s, s.Categories(), s.Sheets(), s.Sessions(), s.Attendance(),
		s.Players(), s.Coaches(), schedules, v, clock, log)
	payroll := payroll_service.NewPayrollService(s, s.Categories(), s.Coaches(), s.Rates(), s.Sheets(), s.Sessions(),
		s.Attendance(), s.Salaries(), notifier, clock, log)
	invoices := invoice_service.NewInvoiceService(s, s.Categories(), s.Players(), s.Invoices(), notifier, clock, log)

	ts := &testServer{store: s}
	ts.category = &models.TrainingCategory{Name: "U12", MonthlyFee: decimal.NewFromInt(3000000), IsActive: true}
	must(t, s.Categories().Create(ctx, ts.category))
	must(t, schedules.AddSchedule(ctx, &models.TrainingSchedule{CategoryID: ts.category.ID, Weekday: jalali.Saturday, StartTime: "17:00"}))
	ts.player = &models.Player{FirstName: "Ali", LastName: "Rezaei", PlayerCode: "P1", Status: models.PlayerApproved}
	must(t, s.Players().Create(ctx, ts.player))
	must(t, s.Players().AddToCategory(ctx, ts.category.ID, ts.player.ID))
	ts.coach = &models.Coach{FirstName: "Reza", LastName: "Navabi", IsActive: true}
	must(t, s.Coaches().Create(ctx, ts.coach))

	h := NewHandler(schedules, attendance, payroll, invoices, notifier, v, clock, log)
	ts.srv = httptest.NewServer(h.Routes())
	t.Cleanup(ts.srv.Close)
	return ts
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string, actor int64) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	must(t, err)
	if actor != 0 {
		req.Header.Set(actorHeader, fmt.Sprint(actor))
	}
	resp, err := http.DefaultClient.Do(req)
	must(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func (ts *testServer) matrix(t *testing.T) map[string]any {
	t.Helper()
	resp, body := ts.do(t, http.MethodGet, fmt.Sprintf("/api/categories/%d/matrix?year=1403&month=5", ts.category.ID), "", 0)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matrix status = %d", resp.StatusCode)
	}
	return body
}

func firstSessionID(body map[string]any) int64 {
	sessions := body["sessions"].([]any)
	return int64(sessions[0].(map[string]any)["id"].(float64))
}

func TestMatrixEndpoint(t *testing.T) {
	ts := newTestServer(t)
	body := ts.matrix(t)
	if n := len(body["sessions"].([]any)); n != 4 {
		t.Errorf("sessions = %d", n)
	}
	players := body["players"].([]any)
	if len(players) != 1 || players[0].(map[string]any)["attendance_pct"].(float64) != 0 {
		t.Errorf("players = %v", players)
	}

	resp, _ := ts.do(t, http.MethodGet, "/api/categories/1/matrix?year=1403&month=13", "", 0)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad month status = %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/api/categories/999/matrix", "", 0)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown category status = %d", resp.StatusCode)
	}
}

func TestRecordAndFinalize(t *testing.T) {
	ts := newTestServer(t)
	sessionID := firstSessionID(ts.matrix(t))
	path := fmt.Sprintf("/api/sessions/%d/attendance", sessionID)
	body := fmt.Sprintf(`{"players":[{"entity_id":%d,"status":"present"}]}`, ts.player.ID)

	if resp, _ := ts.do(t, http.MethodPost, path, body, 0); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing actor status = %d", resp.StatusCode)
	}
	bad := fmt.Sprintf(`{"players":[{"entity_id":%d,"status":"late"}]}`, ts.player.ID)
	if resp, _ := ts.do(t, http.MethodPost, path, bad, 7); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid status code = %d", resp.StatusCode)
	}
	if resp, _ := ts.do(t, http.MethodPost, path, body, 7); resp.StatusCode != http.StatusOK {
		t.Fatalf("record status = %d", resp.StatusCode)
	}

	sheetID := int64(ts.matrix(t)["sheet"].(map[string]any)["id"].(float64))
	finalize := fmt.Sprintf("/api/sheets/%d/finalize", sheetID)
	if resp, _ := ts.do(t, http.MethodPost, finalize, "", 7); resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d", resp.StatusCode)
	}
	if resp, _ := ts.do(t, http.MethodPost, finalize, "", 7); resp.StatusCode != http.StatusConflict {
		t.Errorf("second finalize status = %d", resp.StatusCode)
	}
	resp, out := ts.do(t, http.MethodPost, path, body, 7)
	if resp.StatusCode != http.StatusConflict || !strings.Contains(out["error"].(string), "finalized") {
		t.Errorf("record on finalized sheet: %d %v", resp.StatusCode, out)
	}
}

func TestSalaryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.matrix(t) // creates the sheet
	body := fmt.Sprintf(`{"coach_id":%d,"category_id":%d,"year":1403,"month":5}`, ts.coach.ID, ts.category.ID)

	if resp, _ := ts.do(t, http.MethodPost, "/api/salaries", body, 9); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("no rate status = %d", resp.StatusCode)
	}

	must(t, ts.store.Rates().Upsert(context.Background(), &models.CoachCategoryRate{
		CoachID: ts.coach.ID, CategoryID: ts.category.ID, SessionRate: decimal.NewFromInt(500000), IsActive: true,
	}))
	resp, out := ts.do(t, http.MethodPost, "/api/salaries", body, 9)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d %v", resp.StatusCode, out)
	}
	salaryID := int64(out["salary"].(map[string]any)["id"].(float64))

	if resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/salaries/%d/pay", salaryID), "", 9); resp.StatusCode != http.StatusConflict {
		t.Errorf("pay before approve status = %d", resp.StatusCode)
	}
	resp, out = ts.do(t, http.MethodPost, fmt.Sprintf("/api/salaries/%d/approve", salaryID), "", 9)
	if resp.StatusCode != http.StatusOK || out["status"] != string(models.SalaryApproved) {
		t.Errorf("approve: %d %v", resp.StatusCode, out)
	}
	if resp, _ := ts.do(t, http.MethodPost, "/api/salaries/999/approve", "", 9); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown salary status = %d", resp.StatusCode)
	}
	if resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/salaries/%d/explode", salaryID), "", 9); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown action status = %d", resp.StatusCode)
	}
}

func TestInvoiceEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, out := ts.do(t, http.MethodPost, "/api/invoices/generate?year=1403&month=5", "", 9)
	if resp.StatusCode != http.StatusOK || out["created"].(float64) != 1 {
		t.Fatalf("generate: %d %v", resp.StatusCode, out)
	}
	resp, out = ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/generate?year=1403&month=5&category=%d", ts.category.ID), "", 9)
	if resp.StatusCode != http.StatusOK || out["created"].(float64) != 0 || out["skipped"].(float64) != 1 {
		t.Errorf("rerun: %d %v", resp.StatusCode, out)
	}

	invoices, err := ts.store.Invoices().ListByMonth(context.Background(), 1403, 5)
	must(t, err)
	path := fmt.Sprintf("/api/invoices/%d/discount", invoices[0].ID)
	if resp, _ := ts.do(t, http.MethodPost, path, `{"discount":"5000000"}`, 9); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("oversized discount status = %d", resp.StatusCode)
	}
	resp, out = ts.do(t, http.MethodPost, path, `{"discount":"500000"}`, 9)
	if resp.StatusCode != http.StatusOK || out["final_amount"] != "2500000" {
		t.Errorf("discount: %d %v", resp.StatusCode, out)
	}
	if resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/receipt", invoices[0].ID), `{}`, 9); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty receipt status = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrSheetFinalized, http.StatusConflict},
		{&models.TransitionError{Entity: "salary", Action: "approve", From: "paid"}, http.StatusConflict},
		{service.ErrRateNotDefined, http.StatusUnprocessableEntity},
		{models.ErrDiscountExceedsAmount, http.StatusUnprocessableEntity},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
