package attendance

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Service struct {
	store    RecordStore
	logger   *zap.Logger
	validate *validator.Validate
}

func NewService(store RecordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, validate: recordValidator}
}

// GET /attendance
func (s *Service) ListAll(ctx context.Context) ([]AttendanceRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("list attendance records failed", zap.Error(err))
		return nil, ErrInternal("Internal server error")
	}
	if records == nil {
		records = []AttendanceRecord{}
	}
	return records, nil
}

// POST /attendance
// 重複チェックはしない（同日の二重チェックインはクライアント側で弾く）
func (s *Service) Append(ctx context.Context, in AttendanceRecord) (AttendanceRecord, error) {
	rec := normalize(in)
	if err := s.validate.Struct(rec); err != nil {
		return AttendanceRecord{}, translate(err)
	}

	if err := s.store.Append(ctx, rec); err != nil {
		s.logger.Error("append attendance record failed",
			zap.String("employee_id", rec.EmployeeID), zap.String("date", rec.Date), zap.Error(err))
		return AttendanceRecord{}, ErrInternal("Internal server error")
	}
	return rec, nil
}

// PUT /attendance
// (employeeId, date) が一致する先頭行を置き換える。
// checkIn と一度入った checkOut は書き換えさせない
func (s *Service) Update(ctx context.Context, in AttendanceRecord) (AttendanceRecord, error) {
	rec := normalize(in)
	if !IsValidEmployeeID(rec.EmployeeID) {
		return AttendanceRecord{}, ErrInvalid("Employee ID must contain only numbers")
	}
	if err := s.validate.StructExcept(rec, "EmployeeName"); err != nil {
		return AttendanceRecord{}, translate(err)
	}

	var written AttendanceRecord
	err := s.store.Update(ctx, rec, func(stored AttendanceRecord) (AttendanceRecord, error) {
		next, err := mergeUpdate(stored, rec)
		if err != nil {
			return AttendanceRecord{}, err
		}
		written = next
		return next, nil
	})
	if err != nil {
		var api *APIError
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return AttendanceRecord{}, ErrNotFound("Record not found")
		case errors.As(err, &api):
			return AttendanceRecord{}, api
		}
		s.logger.Error("update attendance record failed",
			zap.String("employee_id", rec.EmployeeID), zap.String("date", rec.Date), zap.Error(err))
		return AttendanceRecord{}, ErrInternal("Internal server error")
	}
	return written, nil
}

// mergeUpdate: 空の name / checkIn は保存済みの値を引き継ぐ
func mergeUpdate(stored, in AttendanceRecord) (AttendanceRecord, error) {
	next := in
	if next.EmployeeName == "" {
		next.EmployeeName = stored.EmployeeName
	}
	switch {
	case next.CheckIn == "":
		next.CheckIn = stored.CheckIn
	case stored.CheckIn != "" && next.CheckIn != stored.CheckIn:
		return AttendanceRecord{}, ErrConflict("checkIn cannot be changed")
	}
	if stored.CheckedOut() {
		if !next.CheckedOut() || *next.CheckOut != *stored.CheckOut {
			return AttendanceRecord{}, ErrConflict("Employee already checked out")
		}
	}
	next.Status = next.DerivedStatus()
	return next, nil
}

// GET /attendance/export
func (s *Service) Export(ctx context.Context, format string) (ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return ExportFile{}, ErrInvalid("format must be xlsx or csv")
	}

	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("read records for export failed", zap.Error(err))
		return ExportFile{}, ErrInternal("Error exporting data")
	}

	var file ExportFile
	switch format {
	case FormatCSV:
		data, err := encodeCSV(records)
		if err != nil {
			s.logger.Error("encode csv export failed", zap.Error(err))
			return ExportFile{}, ErrInternal("Error exporting data")
		}
		file = ExportFile{Filename: ExportFilenameCSV, ContentType: ContentTypeCSV, Data: data}
	default:
		data, err := encodeXLSX(records)
		if err != nil {
			s.logger.Error("encode xlsx export failed", zap.Error(err))
			return ExportFile{}, ErrInternal("Error exporting data")
		}
		file = ExportFile{Filename: ExportFilenameXLSX, ContentType: ContentTypeXLSX, Data: data}
	}
	return file, nil
}
