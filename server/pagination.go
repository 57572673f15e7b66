package server

import (
	"net/http"
	"net/url"
	"strconv"
)

const pageSize = 20

type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// paginate slices items by the ?page= parameter. It returns false when the page
// does not exist.
func paginate[T any](r *http.Request, items []T) (page[T], bool) {
	n := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return page[T]{}, false
		}
		n = v
	}
	start := (n - 1) * pageSize
	if start > 0 && start >= len(items) {
		return page[T]{}, false
	}
	end := min(start+pageSize, len(items))

	p := page[T]{Count: len(items), Results: items[start:end]}
	if p.Results == nil {
		p.Results = []T{}
	}
	if end < len(items) {
		p.Next = pageURL(r, n+1)
	}
	if n > 1 {
		p.Previous = pageURL(r, n-1)
	}
	return p, true
}

func pageURL(r *http.Request, n int) *string {
	u := url.URL{Scheme: scheme(r), Host: r.Host, Path: r.URL.Path}
	q := r.URL.Query()
	if n == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	p, ok := paginate(r, items)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// scheme determines if the request came in over http or https
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if s := r.Header.Get("X-Forwarded-Proto"); s != "" {
		return s
	}
	return "http"
}
