package attendance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXStore: 1ファイル・1シートの Excel をそのまま台帳として使う。
// 書き込みは毎回ファイル全体の read-modify-write。プロセス内は mu で直列化する
type XLSXStore struct {
	path string
	mu   sync.Mutex
}

func NewXLSXStore(path string) *XLSXStore { return &XLSXStore{path: path} }

func (s *XLSXStore) List(ctx context.Context) ([]AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *XLSXStore) Append(ctx context.Context, rec AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.writeAll(records)
}

func (s *XLSXStore) Update(ctx context.Context, rec AttendanceRecord, merge Merge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}
	for i := range records {
		if !records[i].SameKey(rec) {
			continue
		}
		next := rec
		if merge != nil {
			if next, err = merge(records[i]); err != nil {
				return err
			}
		}
		records[i] = next
		return s.writeAll(records)
	}
	return ErrRecordNotFound
}

// readAll: ファイルが無ければ空のブックを作って空配列を返す
func (s *XLSXStore) readAll() ([]AttendanceRecord, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := s.writeAll(nil); err != nil {
				return nil, err
			}
			return []AttendanceRecord{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	return readSheet(f)
}

func (s *XLSXStore) writeAll(records []AttendanceRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(s.path), err)
	}

	f, err := newWorkbook(records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// 一時ファイルに書いてから rename（拡張子は .xlsx のままにする）
	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// readSheet: 先頭シートのヘッダ行を見て各行を読む
func readSheet(f *excelize.File) ([]AttendanceRecord, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return []AttendanceRecord{}, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []AttendanceRecord{}, nil
	}

	idx, ok := headerIndex(rows[0])
	if !ok {
		return nil, fmt.Errorf("sheet %s: header must contain %v", sheet, columns)
	}

	out := make([]AttendanceRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		out = append(out, fromRow(idx, row))
	}
	return out, nil
}

// newWorkbook: シート名 Attendance、1行目ヘッダ、2行目以降にレコード
func newWorkbook(records []AttendanceRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		vals := rec.toRow()
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14)
	_ = f.SetColWidth(SheetName, "B", "B", 24)
	_ = f.SetColWidth(SheetName, "C", "F", 12)
	return f, nil
}
