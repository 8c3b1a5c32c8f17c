package attendance

import "context"

// Merge: 保存済みの行から書き込む行を決める。エラーを返すと更新しない
type Merge func(stored AttendanceRecord) (AttendanceRecord, error)

// RecordStore: 全件読み出し・追記・(employeeId, date) 一致の先頭行の置換
type RecordStore interface {
	List(ctx context.Context) ([]AttendanceRecord, error)
	Append(ctx context.Context, rec AttendanceRecord) error
	// 一致行が無ければ ErrRecordNotFound
	Update(ctx context.Context, rec AttendanceRecord, merge Merge) error
}
