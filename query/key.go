package query

import (
	"net/url"
)

// Key identifies one cached result: a resource name plus its canonical parameters.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a canonical key. Empty values and parameters without a value are
// dropped, and the rest are encoded in sorted order, so {location: ""} and {} give
// the same key. Params is exactly the query string the request would carry.
func NewKey(resource string, params url.Values) Key {
	return Key{Resource: resource, Params: Canonical(params).Encode()}
}

// Canonical returns a copy of params without empty values.
func Canonical(params url.Values) url.Values {
	out := url.Values{}
	for name, values := range params {
		for _, v := range values {
			if v != "" {
				out.Add(name, v)
			}
		}
	}
	return out
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}
