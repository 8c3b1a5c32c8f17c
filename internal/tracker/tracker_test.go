package tracker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"attendance-tracker/internal/attendance"
)

type harness struct {
	tr    *Tracker
	store *memStore
	relay *stubRelay
	notes *recorder
	clock *fixedClock
}

func newHarness(t *testing.T, now time.Time, loc *time.Location) *harness {
	t.Helper()
	h := &harness{
		store: &memStore{},
		relay: &stubRelay{ok: true},
		notes: &recorder{},
		clock: &fixedClock{t: now},
	}
	h.tr = New(Options{
		Store:    h.store,
		Relay:    h.relay,
		Notifier: h.notes,
		Clock:    h.clock,
		Location: loc,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(h.tr.Close)
	return h
}

var morning = time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC)

func TestLoadToday_FiltersToCurrentDate(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	h.store.records = []attendance.AttendanceRecord{
		{EmployeeID: "1", EmployeeName: "A", CheckIn: "08:00", Status: attendance.StatusPresent, Date: "2024-03-04"},
		{EmployeeID: "2", EmployeeName: "B", CheckIn: "08:30", Status: attendance.StatusPresent, Date: "2024-03-05"},
	}

	if err := h.tr.LoadToday(context.Background()); err != nil {
		t.Fatalf("LoadToday: %v", err)
	}
	got := h.tr.Today()
	if len(got) != 1 || got[0].EmployeeID != "2" {
		t.Fatalf("today = %+v", got)
	}
}

func TestLoadToday_ErrorKeepsView(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	if _, err := h.tr.CheckIn(context.Background(), "7", "Gina"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	h.store.listErr = errors.New("connection refused")

	err := h.tr.LoadToday(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
	if n := h.notes.last(); n.level != LevelError || n.msg != "Error loading attendance data. Please try again." {
		t.Errorf("notification = %+v", n)
	}
	if len(h.tr.Today()) != 1 {
		t.Error("view should be unchanged after a failed load")
	}
}

func TestCheckIn_Validation(t *testing.T) {
	cases := []struct {
		name, id, emp, msg string
	}{
		{"empty id", "", "Ann", "Please enter both Employee ID and Name"},
		{"blank name", "12", "   ", "Please enter both Employee ID and Name"},
		{"letters", "12a", "Ann", "Employee ID must contain only numbers"},
		{"negative", "-5", "Ann", "Employee ID must contain only numbers"},
		{"fullwidth digits", "１２", "Ann", "Employee ID must contain only numbers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, morning, time.UTC)
			_, err := h.tr.CheckIn(context.Background(), tc.id, tc.emp)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", ve.Msg, tc.msg)
			}
			if len(h.relay.sent) != 0 || h.store.appends != 0 {
				t.Error("nothing should be sent on validation failure")
			}
			if n := h.notes.last(); n.level != LevelError {
				t.Errorf("notification = %+v", n)
			}
		})
	}
}

func TestCheckIn_Success(t *testing.T) {
	h := newHarness(t, morning, time.UTC)

	rec, err := h.tr.CheckIn(context.Background(), " 42 ", " Alice ")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	want := attendance.AttendanceRecord{
		EmployeeID: "42", EmployeeName: "Alice", CheckIn: "09:07",
		Status: attendance.StatusPresent, Date: "2024-03-05",
	}
	if rec != want {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}
	if len(h.relay.sent) != 1 || h.store.appends != 1 {
		t.Fatalf("relay=%d appends=%d", len(h.relay.sent), h.store.appends)
	}
	if n := h.notes.last(); n != (note{LevelSuccess, "Check-in successful!"}) {
		t.Errorf("notification = %+v", n)
	}
	if today := h.tr.Today(); len(today) != 1 || today[0] != want {
		t.Errorf("today = %+v", today)
	}
}

func TestCheckIn_Duplicate(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	if _, err := h.tr.CheckIn(ctx, "42", "Alice"); err != nil {
		t.Fatal(err)
	}

	_, err := h.tr.CheckIn(ctx, "42", "Alice")
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Msg != "Employee already checked in today" {
		t.Fatalf("want conflict, got %v", err)
	}
	if h.store.appends != 1 {
		t.Errorf("appends = %d", h.store.appends)
	}
}

func TestCheckIn_RelayFailureLeavesEverythingUntouched(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	h.relay.ok = false

	_, err := h.tr.CheckIn(context.Background(), "42", "Alice")
	var te *TransportError
	if !errors.As(err, &te) || te.Msg != "Error submitting attendance. Please try again." {
		t.Fatalf("want TransportError, got %v", err)
	}
	if h.store.appends != 0 {
		t.Error("store should not be written when the relay fails")
	}
	if len(h.tr.Today()) != 0 {
		t.Error("view should stay empty")
	}
}

func TestCheckIn_StoreFailure(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	storeErr := errors.New("500 internal")
	h.store.appendErr = storeErr

	_, err := h.tr.CheckIn(context.Background(), "42", "Alice")
	if !errors.Is(err, storeErr) {
		t.Fatalf("want wrapped store error, got %v", err)
	}
	if len(h.tr.Today()) != 0 {
		t.Error("view should not change when persisting fails")
	}
	if n := h.notes.last(); n.msg != "Error submitting attendance. Please try again." {
		t.Errorf("notification = %+v", n)
	}
}

func TestCheckOut_Flow(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()

	_, err := h.tr.CheckOut(ctx, "42", "Alice")
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Msg != "No check-in record found for today" {
		t.Fatalf("want no-check-in conflict, got %v", err)
	}

	if _, err := h.tr.CheckIn(ctx, "42", "Alice"); err != nil {
		t.Fatal(err)
	}
	h.clock.Set(morning.Add(8*time.Hour + 30*time.Minute))

	rec, err := h.tr.CheckOut(ctx, "42", "Someone Else")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if rec.CheckOut == nil || *rec.CheckOut != "17:37" {
		t.Fatalf("checkOut = %v", rec.CheckOut)
	}
	if rec.Status != attendance.StatusCheckedOut || rec.EmployeeName != "Alice" || rec.CheckIn != "09:07" {
		t.Errorf("record = %+v", rec)
	}
	if h.store.updates != 1 {
		t.Errorf("updates = %d", h.store.updates)
	}
	if n := h.notes.last(); n != (note{LevelSuccess, "Check-out successful!"}) {
		t.Errorf("notification = %+v", n)
	}

	_, err = h.tr.CheckOut(ctx, "42", "Alice")
	if !errors.As(err, &ce) || ce.Msg != "Employee already checked out" {
		t.Fatalf("want already-checked-out conflict, got %v", err)
	}
}

func TestCheckOut_RelayFailureKeepsView(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	if _, err := h.tr.CheckIn(ctx, "42", "Alice"); err != nil {
		t.Fatal(err)
	}
	h.relay.ok = false

	_, err := h.tr.CheckOut(ctx, "42", "Alice")
	var te *TransportError
	if !errors.As(err, &te) || te.Msg != "Error updating attendance. Please try again." {
		t.Fatalf("want TransportError, got %v", err)
	}
	if h.store.updates != 0 {
		t.Error("store should not be updated")
	}
	if today := h.tr.Today(); today[0].CheckOut != nil {
		t.Error("view should still show the employee as present")
	}
}

func TestCheckOut_Validation(t *testing.T) {
	cases := []struct {
		name, id, emp, msg string
	}{
		{"empty id", "", "Ann", "Please enter both Employee ID and Name"},
		{"empty name", "42", "", "Please enter both Employee ID and Name"},
		{"mixed", "4x2", "Ann", "Employee ID must contain only numbers"},
		{"decimal", "4.2", "Ann", "Employee ID must contain only numbers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, morning, time.UTC)
			if _, err := h.tr.CheckIn(context.Background(), "42", "Ann"); err != nil {
				t.Fatal(err)
			}

			_, err := h.tr.CheckOut(context.Background(), tc.id, tc.emp)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", ve.Msg, tc.msg)
			}
			if h.store.updates != 0 || len(h.relay.sent) != 1 {
				t.Errorf("updates=%d relayed=%d, want only the check-in relayed", h.store.updates, len(h.relay.sent))
			}
			if n := h.notes.last(); n.level != LevelError || n.msg != tc.msg {
				t.Errorf("notification = %+v", n)
			}
		})
	}
}

func TestCheckOut_StoreFailureKeepsView(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	if _, err := h.tr.CheckIn(ctx, "42", "Alice"); err != nil {
		t.Fatal(err)
	}
	storeErr := errors.New("503 unavailable")
	h.store.updateErr = storeErr

	_, err := h.tr.CheckOut(ctx, "42", "Alice")
	var te *TransportError
	if !errors.As(err, &te) || te.Msg != "Error updating attendance. Please try again." {
		t.Fatalf("want TransportError, got %v", err)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("cause not wrapped: %v", err)
	}
	if n := h.notes.last(); n != (note{LevelError, "Error updating attendance. Please try again."}) {
		t.Errorf("notification = %+v", n)
	}
	today := h.tr.Today()
	if len(today) != 1 || today[0].CheckOut != nil || today[0].Status != attendance.StatusPresent {
		t.Errorf("view changed after failed update: %+v", today)
	}

	// 復旧後はそのまま退勤できる
	h.store.updateErr = nil
	if _, err := h.tr.CheckOut(ctx, "42", "Alice"); err != nil {
		t.Fatalf("CheckOut after recovery: %v", err)
	}
}

func TestToday_ReturnsCopy(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	if _, err := h.tr.CheckIn(ctx, "1", "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.tr.CheckOut(ctx, "1", "A"); err != nil {
		t.Fatal(err)
	}

	snap := h.tr.Today()
	*snap[0].CheckOut = "23:59"
	snap[0].EmployeeName = "changed"

	again := h.tr.Today()
	if *again[0].CheckOut != "09:07" || again[0].EmployeeName != "A" {
		t.Errorf("internal state mutated through snapshot: %+v", again[0])
	}
}

func TestResetDay_DropsOtherDates(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		if _, err := h.tr.CheckIn(ctx, id, "emp"+id); err != nil {
			t.Fatal(err)
		}
	}

	next := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	h.clock.Set(next)
	if removed := h.tr.ResetDay(next); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(h.tr.Today()) != 0 {
		t.Error("view should be empty after reset")
	}
	if n := h.notes.last(); n != (note{LevelInfo, "Attendance records have been reset for the new day"}) {
		t.Errorf("notification = %+v", n)
	}

	// 新しい日は再度チェックインできる
	if _, err := h.tr.CheckIn(ctx, "1", "emp1"); err != nil {
		t.Fatalf("CheckIn on new day: %v", err)
	}
	if len(h.store.records) != 3 {
		t.Errorf("store should never be pruned, has %d", len(h.store.records))
	}
}

func TestDayUsesTrackerLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	h := newHarness(t, time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC), jst)

	rec, err := h.tr.CheckIn(context.Background(), "5", "Kenji")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Date != "2024-03-06" || rec.CheckIn != "08:30" {
		t.Errorf("date/time = %s %s, want 2024-03-06 08:30", rec.Date, rec.CheckIn)
	}
}

func TestUntilMidnight(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	h := newHarness(t, morning, jst)

	cases := []struct {
		now  time.Time
		want time.Duration
	}{
		{time.Date(2024, 3, 5, 23, 30, 0, 0, jst), 30 * time.Minute},
		{time.Date(2024, 3, 5, 0, 0, 0, 0, jst), 24 * time.Hour},
		{time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), time.Hour},
	}
	for _, tc := range cases {
		if got := h.tr.UntilMidnight(tc.now); got != tc.want {
			t.Errorf("UntilMidnight(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestUntilMidnight_DSTStartsAtMidnight(t *testing.T) {
	// 2024-09-08 は 0:00 -04 が 1:00 -03 に飛ぶ
	santiago, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	h := newHarness(t, morning, santiago)

	now := time.Date(2024, 9, 7, 22, 0, 0, 0, santiago)
	if got := h.tr.UntilMidnight(now); got != 2*time.Hour {
		t.Errorf("UntilMidnight = %v, want 2h", got)
	}

	next := dayStart{loc: santiago}.Next(now)
	want := time.Date(2024, 9, 8, 4, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want.In(santiago))
	}
	if y, m, d := next.In(santiago).Date(); y != 2024 || m != time.September || d != 8 {
		t.Errorf("boundary falls on %d-%02d-%02d, want 2024-09-08", y, m, d)
	}

	// 翌日は通常どおり 0:00 -03
	after := dayStart{loc: santiago}.Next(next)
	if want := time.Date(2024, 9, 9, 3, 0, 0, 0, time.UTC); !after.Equal(want) {
		t.Errorf("following boundary = %v, want %v", after, want.In(santiago))
	}
}

func TestResetHandle_NextOnDSTDay(t *testing.T) {
	santiago, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	h := newHarness(t, time.Date(2024, 9, 7, 22, 0, 0, 0, santiago), santiago)

	handle := h.tr.ScheduleDailyReset()
	defer handle.Stop()
	if got, want := handle.Next(), time.Date(2024, 9, 8, 4, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want.In(santiago))
	}
}

func TestScheduleDailyReset(t *testing.T) {
	h := newHarness(t, morning, time.UTC)

	first := h.tr.ScheduleDailyReset()
	want := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	if got := first.Next(); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}

	second := h.tr.ScheduleDailyReset()
	// 先の予約はすでに止まっている。二度目の Stop も安全
	first.Stop()
	first.Stop()

	h.tr.Close()
	second.Stop()
	h.tr.Close()
}

func TestRender(t *testing.T) {
	h := newHarness(t, morning, time.UTC)
	ctx := context.Background()
	if _, err := h.tr.CheckIn(ctx, "1", "Ann"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.tr.CheckIn(ctx, "2", "Bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.tr.CheckOut(ctx, "2", "Bob"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := h.tr.Render(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "Check Out") {
		t.Errorf("header = %q", lines[0])
	}
	if f := strings.Fields(lines[1]); f[3] != "-" || f[4] != "Present" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Checked Out") || !strings.Contains(lines[2], "09:07") {
		t.Errorf("row 2 = %q", lines[2])
	}
}
