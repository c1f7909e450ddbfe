package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Decoder knows how to decode a value from an HTTP request body.
type Decoder interface {
	Decode(data []byte) error
}

// Decode reads the body of an HTTP request looking for a JSON
// document. The body is decoded into the provided value, then checked
// for validation if it implements Decoder, otherwise checked via the
// Validate function for any `validate` struct tags.
func Decode(r *http.Request, val any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(val); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if v, ok := val.(Decoder); ok {
		if err := v.Decode(nil); err != nil {
			return fmt.Errorf("unable to decode payload: %w", err)
		}
		return nil
	}

	if err := Validate(val); err != nil {
		return err
	}

	return nil
}
