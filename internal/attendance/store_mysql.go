package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attendance-tracker/internal/platform/db"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS attendance_records (
	row_id        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	employee_id   VARCHAR(64)  NOT NULL,
	employee_name VARCHAR(255) NOT NULL,
	check_in      CHAR(5)      NOT NULL DEFAULT '',
	check_out     CHAR(5)      NULL,
	status        VARCHAR(16)  NOT NULL,
	attended_on   CHAR(10)     NOT NULL,
	PRIMARY KEY (row_id),
	KEY idx_employee_date (employee_id, attended_on)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLStore: 行単位で持つ版。Update は対象行を FOR UPDATE で掴んでから置換する
type MySQLStore struct{ db *sql.DB }

func NewMySQLStore(conn *sql.DB) *MySQLStore { return &MySQLStore{db: conn} }

func (s *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create attendance_records: %w", err)
	}
	return nil
}

// 追記順 = row_id 順
func (s *MySQLStore) List(ctx context.Context) ([]AttendanceRecord, error) {
	out := make([]AttendanceRecord, 0, 64)
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, `
		SELECT employee_id, employee_name, check_in, check_out, status, attended_on
		FROM attendance_records
		ORDER BY row_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MySQLStore) Append(ctx context.Context, rec AttendanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO attendance_records (employee_id, employee_name, check_in, check_out, status, attended_on)
	VALUES (?, ?, ?, ?, ?, ?)`,
		rec.EmployeeID, rec.EmployeeName, rec.CheckIn, nullableString(rec.CheckOut), string(rec.Status), rec.Date)
	return err
}

func (s *MySQLStore) Update(ctx context.Context, rec AttendanceRecord, merge Merge) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx, `
		SELECT row_id, employee_id, employee_name, check_in, check_out, status, attended_on
		FROM attendance_records
		WHERE employee_id = ? AND attended_on = ?
		ORDER BY row_id
		LIMIT 1
		FOR UPDATE`, rec.EmployeeID, rec.Date)

		var rowID uint64
		stored, err := scanRecord(row, &rowID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		next := rec
		if merge != nil {
			if next, err = merge(stored); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET employee_name = ?, check_in = ?, check_out = ?, status = ?
		WHERE row_id = ?`,
			next.EmployeeName, next.CheckIn, nullableString(next.CheckOut), string(next.Status), rowID)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord: prefix には row_id など先頭の追加列を渡す
func scanRecord(r rowScanner, prefix ...any) (AttendanceRecord, error) {
	var (
		rec      AttendanceRecord
		checkOut sql.NullString
		status   string
	)
	dest := append(prefix, &rec.EmployeeID, &rec.EmployeeName, &rec.CheckIn, &checkOut, &status, &rec.Date)
	if err := r.Scan(dest...); err != nil {
		return AttendanceRecord{}, err
	}
	rec.Status = Status(status)
	if checkOut.Valid {
		v := checkOut.String
		rec.CheckOut = &v
	}
	return rec, nil
}

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
