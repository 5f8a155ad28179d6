package models

import "encoding/json"

// Optional distinguishes a field that was omitted from the request body
// from one that was explicitly supplied, including an explicit null.
// UnmarshalJSON only runs for keys present in the body, so a zero
// Optional means the field was never sent.
type Optional[T any] struct {
	Value T
	Set   bool
	Valid bool
}

func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{Value: value, Set: true, Valid: true}
}

func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}

	err := json.Unmarshal(b, &o.Value)
	if err != nil {
		return err
	}
	o.Valid = true
	return nil
}
