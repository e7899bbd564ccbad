package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrTrailingData - после JSON-значения остались лишние данные.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// DecodeStrict декодирует ровно одно JSON-значение в out.
// Неизвестные поля и данные после значения считаются ошибкой.
func DecodeStrict(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
