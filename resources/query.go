package resources

import (
	"fmt"
	"net/url"
	"strconv"
)

// QueryBuilder collects query parameters, dropping nil, nil-pointer and empty string
// values so that equivalent filter sets encode identically.
type QueryBuilder struct {
	values url.Values
}

func NewQuery() *QueryBuilder {
	return &QueryBuilder{values: url.Values{}}
}

func (q *QueryBuilder) Add(key string, value any) *QueryBuilder {
	if s, ok := formatParam(value); ok {
		q.values.Add(key, s)
	}
	return q
}

func (q *QueryBuilder) Values() url.Values {
	return q.values
}

func formatParam(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case *string:
		if v == nil {
			return "", false
		}
		return formatParam(*v)
	case int:
		return strconv.Itoa(v), true
	case *int:
		if v == nil {
			return "", false
		}
		return strconv.Itoa(*v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case *float64:
		if v == nil {
			return "", false
		}
		return strconv.FormatFloat(*v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case *bool:
		if v == nil {
			return "", false
		}
		return strconv.FormatBool(*v), true
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	default:
		s := fmt.Sprint(v)
		return s, s != ""
	}
}
