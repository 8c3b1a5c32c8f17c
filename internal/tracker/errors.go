package tracker

// ValidationError: 入力不備（ID/氏名の欠落、ID が数字以外）
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError: 状態遷移として許されない操作（二重チェックイン等）
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// TransportError: ストアや Webhook に届かなかった
type TransportError struct {
	Msg string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
