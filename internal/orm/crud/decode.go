package crud

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// DecodeRecord converts a record into a T. Struct fields are matched to
// record keys through their db tag.
func DecodeRecord[T any](record map[string]interface{}) (*T, error) {
	var model T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		Result:           &model,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToUUIDHook,
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(record); err != nil {
		return nil, fmt.Errorf("decode %T: %w", model, err)
	}
	return &model, nil
}

var uuidType = reflect.TypeOf(uuid.UUID{})

func stringToUUIDHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != uuidType {
		return data, nil
	}
	return uuid.Parse(reflect.ValueOf(data).String())
}
