package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/repository"
)

// --- fakes ---

type fakeCustomers struct {
	rows     []model.Customer
	inserted []model.Customer
	nextID   int64
	err      error
}

func (f *fakeCustomers) List(context.Context) ([]model.Customer, error) { return f.rows, f.err }

func (f *fakeCustomers) ListExpiringOn(context.Context, string) ([]model.Customer, error) {
	return nil, errors.New("not used")
}

func (f *fakeCustomers) exists(c model.Customer) bool {
	same := func(r model.Customer) bool {
		return r.CustomerName == c.CustomerName && r.ExpiryDate() == c.ExpiryDate()
	}
	for _, r := range f.rows {
		if same(r) {
			return true
		}
	}
	for _, r := range f.inserted {
		if same(r) {
			return true
		}
	}
	return false
}

func (f *fakeCustomers) Insert(_ context.Context, c model.Customer) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.exists(c) {
		return 0, repository.ErrDuplicateCustomer
	}
	f.nextID++
	f.inserted = append(f.inserted, c)
	return f.nextID, nil
}

func (f *fakeCustomers) InsertIgnoreDuplicate(_ context.Context, c model.Customer) (bool, error) {
	if f.exists(c) {
		return false, nil
	}
	f.inserted = append(f.inserted, c)
	return true, nil
}

func (f *fakeCustomers) Delete(_ context.Context, id int64) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeSendLogs struct {
	rows []model.SendLog
	last repository.SendLogFilter
}

func (f *fakeSendLogs) Append(context.Context, model.SendLog) (int64, error) { return 0, nil }

func (f *fakeSendLogs) List(_ context.Context, flt repository.SendLogFilter) ([]model.SendLog, error) {
	f.last = flt
	return f.rows, nil
}

// --- helpers ---

// 21:30 UTC on 16 Oct is already 17 Oct in Dubai.
var fixedNow = time.Date(2026, 10, 16, 21, 30, 0, 0, time.UTC)

type env struct {
	e         *echo.Echo
	customers *fakeCustomers
	logs      *fakeSendLogs
}

func newEnv(t *testing.T, mws ...echo.MiddlewareFunc) env {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)

	cs := &fakeCustomers{}
	ls := &fakeSendLogs{}
	e := NewRouter(Handlers{
		Customers: cs,
		SendLogs:  ls,
		Location:  loc,
		Now:       func() time.Time { return fixedNow },
	}, mws...)
	return env{e: e, customers: cs, logs: ls}
}

func (v env) do(method, path string, body any) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// --- tests ---

func TestHealthz(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListCustomers(t *testing.T) {
	v := newEnv(t)
	v.customers.rows = []model.Customer{{
		ID:             7,
		CustomerName:   "Ali",
		VisaType:       "Employment",
		VisaExpiryDate: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		CountryCode:    model.StrPtr("971"),
		PhoneNumber:    model.StrPtr("501234567"),
	}}

	rec := v.do(http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]map[string]any](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-17", got[0]["visa_expiry_date"])
	assert.Equal(t, "971", got[0]["country_code"])
	assert.EqualValues(t, 7, got[0]["id"])
}

func TestListCustomers_Empty(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateCustomer(t *testing.T) {
	v := newEnv(t)

	rec := v.do(http.MethodPost, "/api/customers", map[string]string{
		"name":         " Ali ",
		"visa_type":    "Employment",
		"expiry_date":  "2026-10-18",
		"country_code": "971",
		"phone":        "050-123 4567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, v.customers.inserted, 1)
	c := v.customers.inserted[0]
	assert.Equal(t, "Ali", c.CustomerName)
	assert.Equal(t, "0501234567", *c.PhoneNumber)
	assert.Equal(t, "2026-10-18", c.ExpiryDate())

	// same name and expiry again
	rec = v.do(http.MethodPost, "/api/customers", map[string]string{
		"name": "Ali", "visa_type": "Tourist", "expiry_date": "2026-10-18",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateCustomer_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing name":  {"visa_type": "Employment", "expiry_date": "2027-01-01"},
		"missing type":  {"name": "Ali", "expiry_date": "2027-01-01"},
		"bad date":      {"name": "Ali", "visa_type": "Employment", "expiry_date": "01/01/2027"},
		"today (Dubai)": {"name": "Ali", "visa_type": "Employment", "expiry_date": "2026-10-17"},
		"past":          {"name": "Ali", "visa_type": "Employment", "expiry_date": "2025-01-01"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			v := newEnv(t)
			rec := v.do(http.MethodPost, "/api/customers", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, v.customers.inserted)

			got := decode[map[string]any](t, rec)
			assert.Equal(t, false, got["success"])
		})
	}
}

func TestDeleteCustomer(t *testing.T) {
	v := newEnv(t)
	v.customers.rows = []model.Customer{{ID: 3, CustomerName: "Ali"}}

	assert.Equal(t, http.StatusBadRequest, v.do(http.MethodDelete, "/api/customers/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, v.do(http.MethodDelete, "/api/customers/99", nil).Code)
	assert.Equal(t, http.StatusOK, v.do(http.MethodDelete, "/api/customers/3", nil).Code)
	assert.Empty(t, v.customers.rows)
}

func TestInformedCustomers(t *testing.T) {
	v := newEnv(t)
	v.logs.rows = []model.SendLog{{
		ID:           1,
		RunID:        "01JAB0C0000000000000000000",
		CustomerName: "Ali",
		Phone:        "971501234567",
		Status:       "sent",
		Outcome:      model.OutcomeSent,
		SentAt:       time.Date(2026, 10, 17, 3, 0, 5, 0, time.UTC),
	}}

	rec := v.do(http.MethodGet, "/api/informed-customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, v.logs.last.From)
	assert.Equal(t, 500, v.logs.last.Limit)

	got := decode[[]map[string]any](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-17 07:00:05 +04", got[0]["sent_at"])
	assert.Equal(t, "sent", got[0]["outcome"])

	rec = v.do(http.MethodGet, "/api/informed-customers?filter=today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, v.logs.last.From)
	require.NotNil(t, v.logs.last.To)
	assert.Equal(t, time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), *v.logs.last.From)
	assert.Equal(t, time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), *v.logs.last.To)

	assert.Equal(t, http.StatusBadRequest, v.do(http.MethodGet, "/api/informed-customers?filter=week", nil).Code)
}

func upload(t *testing.T, v env, field string, rows [][]any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if rows != nil {
		f := excelize.NewFile()
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
		}
		fw, err := mw.CreateFormFile(field, "customers.xlsx")
		require.NoError(t, err)
		require.NoError(t, f.Write(fw))
		require.NoError(t, f.Close())
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import-excel", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func TestImportPreview(t *testing.T) {
	v := newEnv(t)

	rec := upload(t, v, "excel-file", [][]any{
		{"Customer Name", "Visa Type", "Visa expiry date", "CC", "phone"},
		{"Ali", "Employment", "2027-01-15", 971, 501234567},
		{"Past", "Employment", "2026-10-17", 971, 501234567},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		Data   []model.ImportRecord `json:"data_to_preview"`
		Errors []string             `json:"errors"`
	}](t, rec)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Ali", got.Data[0].CustomerName)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "not in the future")
	assert.Empty(t, v.customers.inserted)
}

func TestImportPreview_Errors(t *testing.T) {
	v := newEnv(t)

	rec := upload(t, v, "wrong-field", [][]any{{"Customer Name"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file part")

	rec = upload(t, v, "excel-file", [][]any{{"Customer Name", "Visa Type"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing columns: Visa expiry date, CC, phone")
}

func TestCommitImport(t *testing.T) {
	v := newEnv(t)
	v.customers.rows = []model.Customer{{
		CustomerName:   "Dup",
		VisaExpiryDate: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
	}}

	rec := v.do(http.MethodPost, "/api/commit-import", map[string]any{"data": []model.ImportRecord{
		{CustomerName: "Ali", VisaType: "Employment", ExpiryDate: "2027-01-15"},
		{CustomerName: "Dup", VisaType: "Employment", ExpiryDate: "2027-01-15"},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"imported":1,"skipped":1}`, rec.Body.String())

	rec = v.do(http.MethodPost, "/api/commit-import", map[string]any{"data": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "No data to import"))
}

func TestAPIMiddlewareScopedToAPI(t *testing.T) {
	deny := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		}
	}
	v := newEnv(t, deny)

	assert.Equal(t, http.StatusTooManyRequests, v.do(http.MethodGet, "/api/customers", nil).Code)
	assert.Equal(t, http.StatusOK, v.do(http.MethodGet, "/healthz", nil).Code)
}
