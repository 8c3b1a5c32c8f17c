package tracker

import (
	"context"
	"sync"
	"time"

	"attendance-tracker/internal/attendance"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type memStore struct {
	mu        sync.Mutex
	records   []attendance.AttendanceRecord
	listErr   error
	appendErr error
	updateErr error
	appends   int
	updates   int
}

func (s *memStore) List(context.Context) ([]attendance.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]attendance.AttendanceRecord(nil), s.records...), nil
}

func (s *memStore) Append(_ context.Context, rec attendance.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appends++
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) Update(_ context.Context, rec attendance.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates++
	for i := range s.records {
		if s.records[i].SameKey(rec) {
			s.records[i] = rec
			return nil
		}
	}
	return attendance.ErrRecordNotFound
}

type stubRelay struct {
	ok   bool
	sent []attendance.AttendanceRecord
}

func (r *stubRelay) Relay(_ context.Context, rec attendance.AttendanceRecord) bool {
	r.sent = append(r.sent, rec)
	return r.ok
}

type note struct {
	level Level
	msg   string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	r.notes = append(r.notes, note{level, msg})
	r.mu.Unlock()
}

func (r *recorder) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

func strptr(s string) *string { return &s }
