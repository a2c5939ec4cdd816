package notifications

import "github.com/userforge/userforge-backend/pkg/query"

func listOptions() query.Options {
	return query.Options{
		SortFields: map[string]string{
			"createdAt":    "notifications.created_at",
			"scheduledFor": "notifications.scheduled_for",
			"priority":     "notifications.priority",
			"sentAt":       "notifications.sent_at",
		},
		DefaultSort: query.Sort{Field: "notifications.created_at", Direction: query.DirectionDesc},
		FilterKeys: []string{
			"status", "statuses",
			"channel", "channels",
			"priority", "priorities", "type",
			"read", "unread",
			"retryCount", "hasFailed",
			"createdFrom", "createdTo",
			"scheduledFrom", "scheduledTo",
			"search",
		},
	}
}

func fieldTable() query.FieldTable {
	return query.FieldTable{
		"status":        {Column: "notifications.status", Kind: query.KindExact, SupersededBy: "statuses"},
		"statuses":      {Column: "notifications.status", Kind: query.KindIn},
		"channel":       {Column: "notifications.channel", Kind: query.KindExact, SupersededBy: "channels"},
		"channels":      {Column: "notifications.channel", Kind: query.KindIn},
		"priority":      {Column: "notifications.priority", Kind: query.KindExact, SupersededBy: "priorities"},
		"priorities":    {Column: "notifications.priority", Kind: query.KindIn},
		"type":          {Column: "notification_types.name", Kind: query.KindExact},
		"read":          {Column: "notifications.read_at", Kind: query.KindPresence},
		"unread":        {Column: "notifications.read_at", Kind: query.KindDerivedNull},
		"retryCount":    {Column: "notifications.retry_count", Kind: query.KindNumber},
		"hasFailed":     {Column: "notifications.last_error", Kind: query.KindPresence},
		"createdFrom":   {Column: "notifications.created_at", Kind: query.KindDateFrom},
		"createdTo":     {Column: "notifications.created_at", Kind: query.KindDateTo},
		"scheduledFrom": {Column: "notifications.scheduled_for", Kind: query.KindDateFrom},
		"scheduledTo":   {Column: "notifications.scheduled_for", Kind: query.KindDateTo},
		"search":        {Kind: query.KindSearch, Columns: []string{"notifications.title", "notifications.message"}},
	}
}
