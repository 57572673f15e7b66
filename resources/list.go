package resources

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Page is the backend's paginated envelope.
type Page[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// List decodes either a bare JSON array or a paginated envelope, keeping only the
// results. List endpoints are paginated or not depending on backend settings.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.Wrap(err, "[List.UnmarshalJSON] array")
		}
		*l = items
		return nil
	}
	var envelope struct {
		Results *[]T `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(err, "[List.UnmarshalJSON] envelope")
	}
	if envelope.Results == nil {
		return errors.New("[List.UnmarshalJSON] payload is neither a list nor a paginated envelope")
	}
	*l = *envelope.Results
	return nil
}
