package attendance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *XLSXStore) {
	t.Helper()
	store := newTestXLSXStore(t)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), NewService(store, zap.NewNop()))
	return r, store
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) ResultResponse {
	t.Helper()
	var res ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return res
}

func TestHandler_ListEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/api/attendance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestHandler_PostPutFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := map[string]any{
		"employeeId": "1023", "employeeName": "Asha", "checkIn": "09:00",
		"checkOut": nil, "status": "Present", "date": "2024-06-01",
	}
	w := doJSON(r, http.MethodPost, "/api/attendance", rec)
	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d body=%s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); !res.Success || res.Message != "Record added successfully" {
		t.Errorf("unexpected POST result: %+v", res)
	}

	rec["checkOut"] = "17:00"
	rec["status"] = "Checked Out"
	w = doJSON(r, http.MethodPut, "/api/attendance", rec)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/api/attendance", nil)
	var list []AttendanceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != StatusCheckedOut || list[0].CheckOut == nil || *list[0].CheckOut != "17:00" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestHandler_ErrorStatuses(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		body   any
		status int
		msg    string
	}{
		{"post missing fields", http.MethodPost, map[string]any{"employeeId": "1", "date": "2024-06-01"}, http.StatusBadRequest, "Missing required fields"},
		{"post bad id", http.MethodPost, map[string]any{"employeeId": "abc", "employeeName": "A", "date": "2024-06-01"}, http.StatusBadRequest, "Employee ID must contain only numbers"},
		{"post bad json", http.MethodPost, "{not json", http.StatusBadRequest, "invalid json"},
		{"put bad id", http.MethodPut, map[string]any{"employeeId": "1-2", "date": "2024-06-01"}, http.StatusBadRequest, "Employee ID must contain only numbers"},
		{"put not found", http.MethodPut, map[string]any{"employeeId": "99", "date": "2024-06-01", "checkOut": "10:00"}, http.StatusNotFound, "Record not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, tc.method, "/api/attendance", tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.status, w.Body.String())
			}
			res := decodeResult(t, w)
			if res.Success || res.Message != tc.msg {
				t.Errorf("result = %+v, want message %q", res, tc.msg)
			}
		})
	}
}

func TestHandler_PutConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	base := map[string]any{"employeeId": "5", "employeeName": "E", "checkIn": "08:00", "date": "2024-06-01"}
	doJSON(r, http.MethodPost, "/api/attendance", base)
	base["checkOut"] = "12:00"
	doJSON(r, http.MethodPut, "/api/attendance", base)

	base["checkOut"] = "13:00"
	w := doJSON(r, http.MethodPut, "/api/attendance", base)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestHandler_Export(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, id := range []string{"1", "2", "3"} {
		doJSON(r, http.MethodPost, "/api/attendance", map[string]any{
			"employeeId": id, "employeeName": "N" + id, "checkIn": "09:00", "date": "2024-06-01",
		})
	}

	w := doJSON(r, http.MethodGet, "/api/attendance/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeXLSX {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=attendance.xlsx" {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(SheetName)
	if len(rows) != 4 {
		t.Errorf("rows = %d, want header + 3", len(rows))
	}

	w = doJSON(r, http.MethodGet, "/api/attendance/export?format=csv", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("csv export: status=%d ct=%q", w.Code, w.Header().Get("Content-Type"))
	}
}
