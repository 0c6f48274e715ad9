package entities

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Decode converts a store record into a typed entity
func Decode[T any](record map[string]interface{}) (*T, error) {
	out := new(T)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(record); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

// DecodeAll converts a page of store records into typed entities
func DecodeAll[T any](records []map[string]interface{}) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		entity, err := Decode[T](record)
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, nil
}
