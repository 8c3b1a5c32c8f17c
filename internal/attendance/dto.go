package attendance

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
	SheetName  = "Attendance"

	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	ExportFilenameXLSX = "attendance.xlsx"
	ExportFilenameCSV  = "attendance.csv"
	ContentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV     = "text/csv; charset=utf-8"
)

type Status string

const (
	StatusPresent    Status = "Present"
	StatusCheckedOut Status = "Checked Out"
)

// AttendanceRecord: 1従業員・1日分の出退勤。JSON はフロント(旧TS版)と同じ camelCase
type AttendanceRecord struct {
	EmployeeID   string  `json:"employeeId"   validate:"required,number"`
	EmployeeName string  `json:"employeeName" validate:"required"`
	CheckIn      string  `json:"checkIn"      validate:"omitempty,hhmm"`
	CheckOut     *string `json:"checkOut"     validate:"omitempty,hhmm"` // null = 未退勤
	Status       Status  `json:"status"`
	Date         string  `json:"date"         validate:"required,datetime=2006-01-02"` // YYYY-MM-DD
}

// CheckedOut: checkOut が入っていれば退勤済み
func (r AttendanceRecord) CheckedOut() bool {
	return r.CheckOut != nil && *r.CheckOut != ""
}

// DerivedStatus: status は checkOut からのみ決まる
func (r AttendanceRecord) DerivedStatus() Status {
	if r.CheckedOut() {
		return StatusCheckedOut
	}
	return StatusPresent
}

// SameKey: (employeeId, date) が一致するか
func (r AttendanceRecord) SameKey(o AttendanceRecord) bool {
	return r.EmployeeID == o.EmployeeID && r.Date == o.Date
}

// POST / PUT の応答
type ResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    Code   `json:"code,omitempty"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
