package tracker

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"attendance-tracker/internal/attendance"
	"attendance-tracker/internal/platform/config"
)

// Relay: ベストエフォートの外部通知。送信できたかだけを返す
type Relay interface {
	Relay(ctx context.Context, rec attendance.AttendanceRecord) bool
}

type NopRelay struct{}

func (NopRelay) Relay(context.Context, attendance.AttendanceRecord) bool { return true }

// FormRelay: Google Form の formResponse に form-encoded で POST する。
// 応答内容は見ない（送れたら成功扱い）
type FormRelay struct {
	url     string
	fields  config.WebhookFields
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

func NewFormRelay(cfg config.WebhookConfig, httpClient *http.Client, logger *zap.Logger) *FormRelay {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FormRelay{url: cfg.URL, fields: cfg.Fields, timeout: timeout, http: httpClient, logger: logger}
}

// NewRelay: 設定で無効なら NopRelay
func NewRelay(cfg config.WebhookConfig, logger *zap.Logger) Relay {
	if !cfg.Enabled {
		return NopRelay{}
	}
	return NewFormRelay(cfg, nil, logger)
}

func (r *FormRelay) Form(rec attendance.AttendanceRecord) url.Values {
	checkOut := ""
	if rec.CheckOut != nil {
		checkOut = *rec.CheckOut
	}
	form := url.Values{}
	form.Set(r.fields.EmployeeID, rec.EmployeeID)
	form.Set(r.fields.EmployeeName, rec.EmployeeName)
	form.Set(r.fields.CheckIn, rec.CheckIn)
	form.Set(r.fields.CheckOut, checkOut)
	form.Set(r.fields.Date, rec.Date)
	return form
}

func (r *FormRelay) Relay(ctx context.Context, rec attendance.AttendanceRecord) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(r.Form(rec).Encode()))
	if err != nil {
		r.logger.Error("build webhook request failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("webhook submit failed",
			zap.String("employee_id", rec.EmployeeID), zap.String("date", rec.Date), zap.Error(err))
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	r.logger.Debug("webhook submitted",
		zap.String("employee_id", rec.EmployeeID), zap.Int("status", resp.StatusCode))
	return true
}
