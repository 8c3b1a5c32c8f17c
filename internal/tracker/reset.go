package tracker

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// dayStart: loc での次の日付の始まりに発火する cron.Schedule。
// DST で 0:00 が存在しない日（America/Santiago 等）は切り替わり直後（1:00）になる
type dayStart struct {
	loc *time.Location
}

func (d dayStart) Next(t time.Time) time.Time {
	y, m, day := t.In(d.loc).Date()
	next := time.Date(y, m, day+1, 0, 0, 0, 0, d.loc)
	// 存在しない 0:00 は前日側に正規化されることがある。そのときはゾーンの切り替わり時刻が日の始まり
	if next.Day() != time.Date(y, m, day+1, 12, 0, 0, 0, d.loc).Day() {
		_, next = next.ZoneBounds()
	}
	return next
}

// ResetHandle: 予約済みの日次リセット
type ResetHandle struct {
	cron     *cron.Cron
	schedule cron.Schedule
	now      func() time.Time
	once     sync.Once
}

// Stop: 何度呼んでもよい。実行中のリセットは終わるまで待つ
func (h *ResetHandle) Stop() {
	h.once.Do(func() {
		<-h.cron.Stop().Done()
	})
}

// Next: 次に発火する時刻
func (h *ResetHandle) Next() time.Time {
	return h.schedule.Next(h.now())
}

// ScheduleDailyReset: トラッカーのタイムゾーンで日付が変わるたびに ResetDay を走らせる。
// 既存の予約があれば先に止める
func (t *Tracker) ScheduleDailyReset() *ResetHandle {
	schedule := dayStart{loc: t.loc}
	c := cron.New(
		cron.WithLocation(t.loc),
		cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(t.logger))),
	)
	c.Schedule(schedule, cron.FuncJob(func() {
		t.ResetDay(t.clock.Now())
	}))

	h := &ResetHandle{cron: c, schedule: schedule, now: t.clock.Now}

	t.mu.Lock()
	prev := t.reset
	t.reset = h
	t.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	c.Start()

	t.logger.Info("daily reset scheduled", zap.Time("next", h.Next()))
	return h
}

// UntilMidnight: now から次の日付の始まり（トラッカーのタイムゾーン）まで
func (t *Tracker) UntilMidnight(now time.Time) time.Duration {
	return dayStart{loc: t.loc}.Next(now).Sub(now)
}
