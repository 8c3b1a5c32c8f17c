package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"attendance-tracker/internal/attendance"
)

const (
	msgMissingFields  = "Please enter both Employee ID and Name"
	msgInvalidID      = "Employee ID must contain only numbers"
	msgAlreadyIn      = "Employee already checked in today"
	msgNoCheckIn      = "No check-in record found for today"
	msgAlreadyOut     = "Employee already checked out"
	msgCheckInOK      = "Check-in successful!"
	msgCheckOutOK     = "Check-out successful!"
	msgSubmitFailed   = "Error submitting attendance. Please try again."
	msgUpdateFailed   = "Error updating attendance. Please try again."
	msgLoadFailed     = "Error loading attendance data. Please try again."
	msgResetForNewDay = "Attendance records have been reset for the new day"
)

type Options struct {
	Store    RecordStore
	Relay    Relay
	Notifier Notifier
	Clock    Clock
	Location *time.Location
	Logger   *zap.Logger
}

// Tracker: 当日分の出退勤ビューを持ち、チェックイン/アウトを順序立てて処理する
type Tracker struct {
	store    RecordStore
	relay    Relay
	notifier Notifier
	clock    Clock
	loc      *time.Location
	logger   *zap.Logger

	// ユーザー操作を1件ずつ直列化
	opMu sync.Mutex

	// records / reset を保護。ネットワーク呼び出し中は保持しない
	mu      sync.Mutex
	records []attendance.AttendanceRecord
	reset   *ResetHandle
}

func New(opts Options) *Tracker {
	t := &Tracker{
		store:    opts.Store,
		relay:    opts.Relay,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		loc:      opts.Location,
		logger:   opts.Logger,
	}
	if t.relay == nil {
		t.relay = NopRelay{}
	}
	if t.notifier == nil {
		t.notifier = NotifierFunc(func(Level, string) {})
	}
	if t.clock == nil {
		t.clock = realClock{}
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

func (t *Tracker) now() time.Time {
	return t.clock.Now().In(t.loc)
}

// CurrentDate: トラッカーのタイムゾーンでの今日 (YYYY-MM-DD)
func (t *Tracker) CurrentDate() string {
	return t.now().Format(attendance.DateLayout)
}

// LoadToday: ストアの全件から今日の分だけをビューに入れ直す
func (t *Tracker) LoadToday(ctx context.Context) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	all, err := t.store.List(ctx)
	if err != nil {
		t.logger.Error("load attendance failed", zap.Error(err))
		return t.fail(&TransportError{Msg: msgLoadFailed, Err: err})
	}

	today := t.CurrentDate()
	view := make([]attendance.AttendanceRecord, 0, len(all))
	for _, r := range all {
		if r.Date == today {
			view = append(view, r)
		}
	}

	t.mu.Lock()
	t.records = view
	t.mu.Unlock()

	t.logger.Debug("attendance loaded", zap.Int("total", len(all)), zap.Int("today", len(view)))
	return nil
}

func (t *Tracker) CheckIn(ctx context.Context, employeeID, employeeName string) (attendance.AttendanceRecord, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	id, name, err := t.validateInput(employeeID, employeeName)
	if err != nil {
		return attendance.AttendanceRecord{}, err
	}

	now := t.now()
	date := now.Format(attendance.DateLayout)
	if _, ok := t.find(id, date); ok {
		return attendance.AttendanceRecord{}, t.fail(&ConflictError{Msg: msgAlreadyIn})
	}

	rec := attendance.AttendanceRecord{
		EmployeeID:   id,
		EmployeeName: name,
		CheckIn:      now.Format(attendance.TimeLayout),
		Status:       attendance.StatusPresent,
		Date:         date,
	}

	if !t.relay.Relay(ctx, rec) {
		return attendance.AttendanceRecord{}, t.fail(&TransportError{Msg: msgSubmitFailed})
	}
	if err := t.store.Append(ctx, rec); err != nil {
		t.logger.Error("append attendance failed", zap.String("employee_id", id), zap.Error(err))
		return attendance.AttendanceRecord{}, t.fail(&TransportError{Msg: msgSubmitFailed, Err: err})
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.logger.Info("checked in", zap.String("employee_id", id), zap.String("date", date), zap.String("check_in", rec.CheckIn))
	t.notifier.Notify(LevelSuccess, msgCheckInOK)
	return rec, nil
}

// CheckOut: 氏名は入力チェックのみに使い、記録側の氏名は変えない
func (t *Tracker) CheckOut(ctx context.Context, employeeID, employeeName string) (attendance.AttendanceRecord, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	id, _, err := t.validateInput(employeeID, employeeName)
	if err != nil {
		return attendance.AttendanceRecord{}, err
	}

	now := t.now()
	date := now.Format(attendance.DateLayout)
	current, ok := t.find(id, date)
	if !ok {
		return attendance.AttendanceRecord{}, t.fail(&ConflictError{Msg: msgNoCheckIn})
	}
	if current.CheckedOut() {
		return attendance.AttendanceRecord{}, t.fail(&ConflictError{Msg: msgAlreadyOut})
	}

	updated := current
	checkOut := now.Format(attendance.TimeLayout)
	updated.CheckOut = &checkOut
	updated.Status = attendance.StatusCheckedOut

	if !t.relay.Relay(ctx, updated) {
		return attendance.AttendanceRecord{}, t.fail(&TransportError{Msg: msgUpdateFailed})
	}
	if err := t.store.Update(ctx, updated); err != nil {
		t.logger.Error("update attendance failed", zap.String("employee_id", id), zap.Error(err))
		return attendance.AttendanceRecord{}, t.fail(&TransportError{Msg: msgUpdateFailed, Err: err})
	}

	t.mu.Lock()
	for i := range t.records {
		if t.records[i].SameKey(updated) {
			t.records[i] = updated
			break
		}
	}
	t.mu.Unlock()

	t.logger.Info("checked out", zap.String("employee_id", id), zap.String("date", date), zap.String("check_out", checkOut))
	t.notifier.Notify(LevelSuccess, msgCheckOutOK)
	return updated, nil
}

// Today: 今日の分のコピー
func (t *Tracker) Today() []attendance.AttendanceRecord {
	today := t.CurrentDate()

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]attendance.AttendanceRecord, 0, len(t.records))
	for _, r := range t.records {
		if r.Date != today {
			continue
		}
		if r.CheckOut != nil {
			co := *r.CheckOut
			r.CheckOut = &co
		}
		out = append(out, r)
	}
	return out
}

// ResetDay: now の日付以外の記録をビューから落とす。落とした件数を返す
func (t *Tracker) ResetDay(now time.Time) int {
	today := now.In(t.loc).Format(attendance.DateLayout)

	t.mu.Lock()
	kept := t.records[:0]
	for _, r := range t.records {
		if r.Date == today {
			kept = append(kept, r)
		}
	}
	removed := len(t.records) - len(kept)
	t.records = kept
	t.mu.Unlock()

	t.logger.Info("daily reset", zap.String("date", today), zap.Int("removed", removed))
	t.notifier.Notify(LevelInfo, msgResetForNewDay)
	return removed
}

// Close: 予約中の日次リセットを止める
func (t *Tracker) Close() {
	t.mu.Lock()
	h := t.reset
	t.reset = nil
	t.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

func (t *Tracker) validateInput(employeeID, employeeName string) (string, string, error) {
	id := strings.TrimSpace(employeeID)
	name := norm.NFC.String(strings.TrimSpace(employeeName))
	if id == "" || name == "" {
		return "", "", t.fail(&ValidationError{Msg: msgMissingFields})
	}
	if !attendance.IsValidEmployeeID(id) {
		return "", "", t.fail(&ValidationError{Msg: msgInvalidID})
	}
	return id, name, nil
}

func (t *Tracker) find(id, date string) (attendance.AttendanceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.EmployeeID == id && r.Date == date {
			return r, true
		}
	}
	return attendance.AttendanceRecord{}, false
}

// fail: エラー内容をそのまま通知して返す
func (t *Tracker) fail(err error) error {
	msg := err.Error()
	if te, ok := err.(*TransportError); ok {
		msg = te.Msg
	}
	t.notifier.Notify(LevelError, msg)
	return err
}
