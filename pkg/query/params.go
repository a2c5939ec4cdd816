package query

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPage is used when the page parameter is absent or unusable.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Direction is a normalized sort direction.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Pagination holds normalized offset pagination inputs.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// Sort pairs a column with a direction. Field is always a column name that
// passed the caller's allow-list.
type Sort struct {
	Field     string
	Direction Direction
}

// Filters maps recognized filter keys to their raw string values.
type Filters map[string][]string

// First returns the first raw value for key, or "".
func (f Filters) First(key string) string {
	if vals, ok := f[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether the key carries at least one value.
func (f Filters) Has(key string) bool {
	vals, ok := f[key]
	return ok && len(vals) > 0
}

// Params is the normalized view of a list request's query string.
type Params struct {
	Pagination Pagination
	Sort       Sort
	Filters    Filters
}

// Options configures normalization for one resource type.
type Options struct {
	// SortFields maps accepted sort parameter values to column names.
	SortFields map[string]string
	// DefaultSort is applied when the sort parameter is absent or unknown.
	DefaultSort Sort
	// FilterKeys is the closed set of recognized filter parameters.
	FilterKeys []string
}

// ParseParams normalizes raw query parameters into typed pagination, sort and
// filter structures. It is a pure parse: out-of-range numbers are clamped,
// unknown sort fields fall back to the default, unrecognized filter keys are
// dropped, and malformed values never produce an error.
func ParseParams(values url.Values, opts Options) Params {
	params := Params{
		Pagination: parsePagination(values),
		Sort:       parseSort(values, opts),
		Filters:    parseFilters(values, opts),
	}
	return params
}

func parsePagination(values url.Values) Pagination {
	page := parseIntOrDefault(values.Get("page"), DefaultPage)
	if page < 1 {
		page = 1
	}

	limit := parseIntOrDefault(values.Get("limit"), DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func parseIntOrDefault(raw string, fallback int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return value
}

func parseSort(values url.Values, opts Options) Sort {
	sort := opts.DefaultSort
	if sort.Direction == "" {
		sort.Direction = DirectionDesc
	}

	requested := strings.TrimSpace(values.Get("sortBy"))
	if requested != "" && opts.SortFields != nil {
		if column, ok := opts.SortFields[requested]; ok {
			sort.Field = column
		}
	}

	switch strings.ToLower(strings.TrimSpace(values.Get("sortOrder"))) {
	case "asc":
		sort.Direction = DirectionAsc
	case "desc":
		sort.Direction = DirectionDesc
	}

	return sort
}

func parseFilters(values url.Values, opts Options) Filters {
	filters := Filters{}
	for _, key := range opts.FilterKeys {
		raw, ok := values[key]
		if !ok || len(raw) == 0 {
			continue
		}
		expanded := expandValues(raw)
		if len(expanded) == 0 {
			continue
		}
		filters[key] = expanded
	}
	return filters
}

// expandValues flattens repeated keys and JSON-encoded arrays into a single
// value list.
func expandValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				for _, item := range decoded {
					if item = strings.TrimSpace(item); item != "" {
						out = append(out, item)
					}
				}
				continue
			}
		}
		out = append(out, trimmed)
	}
	return out
}

// ParseDate parses an ISO-8601 date or timestamp. When endOfDay is set and
// the value is a bare date, the result is pushed to 23:59:59.999 so "to"
// bounds stay inclusive through the whole day.
func ParseDate(raw string, endOfDay bool) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.UTC(), true
	}

	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Millisecond)
	}
	return day.UTC(), true
}
