package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listOptions() Options {
	return Options{
		SortFields: map[string]string{
			"createdAt": "created_at",
			"email":     "email",
		},
		DefaultSort: Sort{Field: "created_at", Direction: DirectionDesc},
		FilterKeys:  []string{"status", "roles", "search"},
	}
}

func TestParseParamsDefaults(t *testing.T) {
	params := ParseParams(url.Values{}, listOptions())

	assert.Equal(t, DefaultPage, params.Pagination.Page)
	assert.Equal(t, DefaultLimit, params.Pagination.Limit)
	assert.Equal(t, 0, params.Pagination.Offset)
	assert.Equal(t, "created_at", params.Sort.Field)
	assert.Equal(t, DirectionDesc, params.Sort.Direction)
	assert.Empty(t, params.Filters)
}

func TestParseParamsClampsPagination(t *testing.T) {
	cases := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{name: "limit above max", page: "2", limit: "500", wantPage: 2, wantLimit: MaxLimit},
		{name: "limit below one", page: "1", limit: "0", wantPage: 1, wantLimit: 1},
		{name: "negative page", page: "-3", limit: "25", wantPage: 1, wantLimit: 25},
		{name: "non numeric", page: "abc", limit: "xyz", wantPage: DefaultPage, wantLimit: DefaultLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := url.Values{"page": {tc.page}, "limit": {tc.limit}}
			params := ParseParams(values, listOptions())

			assert.Equal(t, tc.wantPage, params.Pagination.Page)
			assert.Equal(t, tc.wantLimit, params.Pagination.Limit)
			assert.Equal(t, (tc.wantPage-1)*tc.wantLimit, params.Pagination.Offset)
		})
	}
}

func TestParseParamsSort(t *testing.T) {
	values := url.Values{"sortBy": {"email"}, "sortOrder": {"ASC"}}
	params := ParseParams(values, listOptions())

	assert.Equal(t, "email", params.Sort.Field)
	assert.Equal(t, DirectionAsc, params.Sort.Direction)

	values = url.Values{"sortBy": {"password_hash"}, "sortOrder": {"sideways"}}
	params = ParseParams(values, listOptions())

	assert.Equal(t, "created_at", params.Sort.Field)
	assert.Equal(t, DirectionDesc, params.Sort.Direction)
}

func TestParseParamsFilters(t *testing.T) {
	values := url.Values{
		"status":  {"active"},
		"roles":   {`["admin","moderator"]`},
		"ignored": {"value"},
	}
	params := ParseParams(values, listOptions())

	assert.Equal(t, "active", params.Filters.First("status"))
	assert.Equal(t, []string{"admin", "moderator"}, params.Filters["roles"])
	assert.False(t, params.Filters.Has("ignored"))
}

func TestParseParamsRepeatedKeys(t *testing.T) {
	values := url.Values{"roles": {"admin", "user", " "}}
	params := ParseParams(values, listOptions())

	assert.Equal(t, []string{"admin", "user"}, params.Filters["roles"])
}

func TestParseDate(t *testing.T) {
	ts, ok := ParseDate("2025-03-10", false)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), ts)

	ts, ok = ParseDate("2025-03-10", true)
	require.True(t, ok)
	assert.Equal(t, 23, ts.Hour())
	assert.Equal(t, 59, ts.Minute())
	assert.Equal(t, 59, ts.Second())

	ts, ok = ParseDate("2025-03-10T08:30:00Z", true)
	require.True(t, ok)
	assert.Equal(t, 8, ts.Hour())

	_, ok = ParseDate("10/03/2025", false)
	assert.False(t, ok)
}
