package server

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/users"
)

// filterParser reads typed query parameters, collecting the validation messages
// the backend's filter sets return for bad values.
type filterParser struct {
	q    url.Values
	errs users.FieldErrors
}

func newFilterParser(q url.Values) *filterParser {
	return &filterParser{q: q, errs: users.FieldErrors{}}
}

func (p *filterParser) str(name string) string {
	return strings.TrimSpace(p.q.Get(name))
}

func (p *filterParser) number(name string) *float64 {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs.Add(name, "Enter a number.")
		return nil
	}
	return &v
}

func (p *filterParser) integer(name string) *int {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs.Add(name, "Enter a whole number.")
		return nil
	}
	return &v
}

// boolean accepts the spellings the backend's boolean filter does.
func (p *filterParser) boolean(name string) *bool {
	switch strings.ToLower(p.str(name)) {
	case "":
		return nil
	case "true", "1", "yes", "on":
		v := true
		return &v
	case "false", "0", "no", "off":
		v := false
		return &v
	default:
		p.errs.Add(name, "Select a valid choice.")
		return nil
	}
}

func (p *filterParser) err() users.FieldErrors {
	if len(p.errs) == 0 {
		return nil
	}
	return p.errs
}
