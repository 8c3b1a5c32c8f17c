package attendance

import "strings"

// シートの列順（ヘッダ行 = フィールド名）
var columns = []string{"employeeId", "employeeName", "checkIn", "checkOut", "status", "date"}

// toRow: シート/CSV 1行分
func (r AttendanceRecord) toRow() []string {
	checkOut := ""
	if r.CheckOut != nil {
		checkOut = *r.CheckOut
	}
	return []string{r.EmployeeID, r.EmployeeName, r.CheckIn, checkOut, string(r.Status), r.Date}
}

// headerIndex: ヘッダ名 → 列番号。列順が入れ替わっていても読めるようにする
func headerIndex(header []string) (map[string]int, bool) {
	idx := make(map[string]int, len(columns))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return idx, false
		}
	}
	return idx, true
}

func cellValue(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// fromRow: 空セルの checkOut は null 扱い
func fromRow(idx map[string]int, row []string) AttendanceRecord {
	rec := AttendanceRecord{
		EmployeeID:   cellValue(row, idx["employeeId"]),
		EmployeeName: cellValue(row, idx["employeeName"]),
		CheckIn:      cellValue(row, idx["checkIn"]),
		Status:       Status(cellValue(row, idx["status"])),
		Date:         cellValue(row, idx["date"]),
	}
	if v := cellValue(row, idx["checkOut"]); v != "" {
		rec.CheckOut = &v
	}
	return rec
}
