package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"attendance-tracker/internal/attendance"
)

const attendancePath = "/api/attendance"

// RecordStore: Tracker から見た永続ストア
type RecordStore interface {
	List(ctx context.Context) ([]attendance.AttendanceRecord, error)
	Append(ctx context.Context, rec attendance.AttendanceRecord) error
	Update(ctx context.Context, rec attendance.AttendanceRecord) error
}

// StatusError: ストアが 2xx 以外を返した
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store responded %d", e.StatusCode)
	}
	return fmt.Sprintf("store responded %d: %s", e.StatusCode, e.Message)
}

// StoreClient: /api/attendance の HTTP クライアント
type StoreClient struct {
	baseURL string
	http    *http.Client
}

func NewStoreClient(baseURL string, httpClient *http.Client) *StoreClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &StoreClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *StoreClient) List(ctx context.Context) ([]attendance.AttendanceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+attendancePath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", attendancePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, readStatusError(resp)
	}
	var out []attendance.AttendanceRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

func (c *StoreClient) Append(ctx context.Context, rec attendance.AttendanceRecord) error {
	return c.send(ctx, http.MethodPost, rec)
}

func (c *StoreClient) Update(ctx context.Context, rec attendance.AttendanceRecord) error {
	return c.send(ctx, http.MethodPut, rec)
}

func (c *StoreClient) send(ctx context.Context, method string, rec attendance.AttendanceRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+attendancePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, attendancePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readStatusError(resp)
	}
	var res attendance.ResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err == nil && !res.Success {
		return &StatusError{StatusCode: resp.StatusCode, Message: res.Message}
	}
	return nil
}

// Export: エクスポートを w に書き出し、サーバが指定したファイル名を返す
func (c *StoreClient) Export(ctx context.Context, format string, w io.Writer) (string, error) {
	u := c.baseURL + attendancePath + "/export"
	if format != "" {
		u += "?" + url.Values{"format": {format}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", readStatusError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}

	filename := attendance.ExportFilenameXLSX
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return filename, nil
}

func readStatusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	var res attendance.ResultResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&res); err == nil {
		se.Message = res.Message
	}
	return se
}
