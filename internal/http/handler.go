package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/filter"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// parsePage reads the page and size query parameters. Missing values select
// the service defaults.
func parsePage(values url.Values) (filter.PageRequest, error) {
	var (
		req    filter.PageRequest
		fields = map[string]string{}
	)
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["page"] = "page must be a positive integer"
		}
		req.Number = n
	}
	if raw := strings.TrimSpace(values.Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["size"] = "size must be a positive integer"
		}
		req.Size = n
	}
	if len(fields) > 0 {
		return filter.PageRequest{}, &application.ValidationError{FieldErrors: fields}
	}
	return req, nil
}

// parseLimit reads the limit query parameter; 0 selects the service default.
func parseLimit(values url.Values) (int, error) {
	raw := strings.TrimSpace(values.Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &application.ValidationError{FieldErrors: map[string]string{"limit": "limit must be a non-negative integer"}}
	}
	return n, nil
}

type pageResponse[T any] struct {
	Items        []T      `json:"items"`
	Page         int      `json:"page"`
	Size         int      `json:"size"`
	TotalMatches int      `json:"totalMatches"`
	TotalPages   int      `json:"totalPages"`
	Filters      []string `json:"filters"`
}

func toPageResponse[T any](page filter.Page[T]) pageResponse[T] {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	filters := page.Filters
	if filters == nil {
		filters = []string{}
	}
	return pageResponse[T]{
		Items:        items,
		Page:         page.Number,
		Size:         page.Size,
		TotalMatches: page.TotalMatches,
		TotalPages:   page.TotalPages,
		Filters:      filters,
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func toListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}

func principalFrom(r *http.Request) application.Principal {
	principal, _ := PrincipalFromContext(r.Context())
	return principal
}

func unavailable(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
