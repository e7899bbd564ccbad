package models

import (
	"bytes"
	"encoding/json"
)

// Optional - поле частичного обновления с тремя состояниями:
// не передано (Set=false), передано как null (Set=true, Value=nil), передано значение.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some возвращает Optional с заданным значением.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null возвращает Optional, явно очищающий поле.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON вызывается только для присутствующего ключа, в том числе для null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
