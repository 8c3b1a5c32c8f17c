package attendance

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var (
	// 24時間・ゼロ埋め HH:MM
	hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

	// 入力チェックはすべてこのインスタンスを通す（並行利用可）
	recordValidator = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmRegex.MatchString(fl.Field().String())
	})
	return v
}

// IsValidEmployeeID: ASCII 数字のみで構成された ID か（全角数字は不可）
func IsValidEmployeeID(id string) bool {
	return recordValidator.Var(id, "required,number") == nil
}

// IsValidTime: HH:MM 形式か
func IsValidTime(s string) bool {
	return recordValidator.Var(s, "required,hhmm") == nil
}

// normalize: 名前は前後空白除去 + NFC、空の checkOut は null に寄せる
func normalize(rec AttendanceRecord) AttendanceRecord {
	rec.EmployeeName = norm.NFC.String(strings.TrimSpace(rec.EmployeeName))
	rec.Date = strings.TrimSpace(rec.Date)
	rec.CheckIn = strings.TrimSpace(rec.CheckIn)
	if rec.CheckOut != nil {
		v := strings.TrimSpace(*rec.CheckOut)
		if v == "" {
			rec.CheckOut = nil
		} else {
			rec.CheckOut = &v
		}
	}
	rec.Status = rec.DerivedStatus()
	return rec
}

// translate: validator のエラーを API メッセージに変換
func translate(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return ErrInvalid("invalid record")
	}
	fe := ves[0]
	switch fe.StructField() {
	case "EmployeeID":
		if fe.Tag() == "required" {
			return ErrInvalid("Missing required fields")
		}
		return ErrInvalid("Employee ID must contain only numbers")
	case "EmployeeName":
		return ErrInvalid("Missing required fields")
	case "Date":
		return ErrInvalid("date must be YYYY-MM-DD")
	case "CheckIn":
		return ErrInvalid("checkIn must be HH:MM")
	case "CheckOut":
		return ErrInvalid("checkOut must be HH:MM")
	}
	return ErrInvalid(fe.Error())
}
