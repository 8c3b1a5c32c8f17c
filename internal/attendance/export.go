package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func encodeXLSX(records []AttendanceRecord) ([]byte, error) {
	f, err := newWorkbook(records)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeCSV: Excel でそのまま開けるよう UTF-8 BOM 付きで出力
func encodeCSV(records []AttendanceRecord) ([]byte, error) {
	var b bytes.Buffer
	tw := transform.NewWriter(&b, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(tw)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := w.Write(rec.toRow()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
