package logs

import "github.com/userforge/userforge-backend/pkg/query"

func listOptions() query.Options {
	return query.Options{
		SortFields: map[string]string{
			"createdAt":  "created_at",
			"statusCode": "status_code",
			"durationMs": "duration_ms",
			"level":      "level",
		},
		DefaultSort: query.Sort{Field: "created_at", Direction: query.DirectionDesc},
		FilterKeys: []string{
			"level", "levels",
			"action", "actions",
			"method", "path",
			"userId", "ip", "ipPattern",
			"statusFrom", "statusTo",
			"durationFrom", "durationTo", "slowRequests",
			"hasError",
			"createdFrom", "createdTo",
			"search",
		},
	}
}

func fieldTable() query.FieldTable {
	return query.FieldTable{
		"level":        {Column: "level", Kind: query.KindExact, SupersededBy: "levels"},
		"levels":       {Column: "level", Kind: query.KindIn},
		"action":       {Column: "action", Kind: query.KindExact, SupersededBy: "actions"},
		"actions":      {Column: "action", Kind: query.KindIn},
		"method":       {Column: "method", Kind: query.KindExact},
		"path":         {Column: "path", Kind: query.KindContains},
		"userId":       {Column: "user_id", Kind: query.KindExact},
		"ip":           {Column: "ip", Kind: query.KindExact, SupersededBy: "ipPattern"},
		"ipPattern":    {Column: "ip", Kind: query.KindContains},
		"statusFrom":   {Column: "status_code", Kind: query.KindNumberFrom},
		"statusTo":     {Column: "status_code", Kind: query.KindNumberTo},
		"durationFrom": {Column: "duration_ms", Kind: query.KindNumberFrom},
		"durationTo":   {Column: "duration_ms", Kind: query.KindNumberTo},
		// slowRequests takes the threshold in milliseconds.
		"slowRequests": {Column: "duration_ms", Kind: query.KindNumberFrom},
		"hasError":     {Column: "error", Kind: query.KindPresence},
		"createdFrom":  {Column: "created_at", Kind: query.KindDateFrom},
		"createdTo":    {Column: "created_at", Kind: query.KindDateTo},
		"search":       {Kind: query.KindSearch, Columns: []string{"action", "resource", "path"}},
	}
}
