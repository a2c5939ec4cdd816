package users

import "github.com/userforge/userforge-backend/pkg/query"

// listOptions declares the sortable columns and recognized filter keys for
// user listings. Columns are qualified because listings always join roles.
func listOptions() query.Options {
	return query.Options{
		SortFields: map[string]string{
			"createdAt":   "users.created_at",
			"updatedAt":   "users.updated_at",
			"email":       "users.email",
			"displayName": "users.display_name",
			"lastLoginAt": "users.last_login_at",
		},
		DefaultSort: query.Sort{Field: "users.created_at", Direction: query.DirectionDesc},
		FilterKeys: []string{
			"role", "roles",
			"isActive", "emailVerified", "locked", "neverLoggedIn",
			"emailDomain", "inactiveDays", "hasProfile",
			"createdFrom", "createdTo",
			"updatedFrom", "updatedTo",
			"lastLoginFrom", "lastLoginTo",
			"search",
		},
	}
}

func fieldTable() query.FieldTable {
	return query.FieldTable{
		"role":          {Column: "roles.name", Kind: query.KindExact, SupersededBy: "roles"},
		"roles":         {Column: "roles.name", Kind: query.KindIn},
		"isActive":      {Column: "users.is_active", Kind: query.KindBool},
		"emailVerified": {Column: "users.email_verified", Kind: query.KindBool},
		"locked":        {Column: "users.locked_until", Kind: query.KindPresence},
		"neverLoggedIn": {Column: "users.last_login_at", Kind: query.KindDerivedNull},
		"emailDomain":   {Column: "users.email", Kind: query.KindEmailDomain},
		"inactiveDays":  {Column: "users.last_login_at", Kind: query.KindOlderThanDays},
		"hasProfile": {Kind: query.KindClause,
			Clause: "EXISTS (SELECT 1 FROM user_profiles WHERE user_profiles.user_id = users.id)"},
		"createdFrom":   {Column: "users.created_at", Kind: query.KindDateFrom},
		"createdTo":     {Column: "users.created_at", Kind: query.KindDateTo},
		"updatedFrom":   {Column: "users.updated_at", Kind: query.KindDateFrom},
		"updatedTo":     {Column: "users.updated_at", Kind: query.KindDateTo},
		"lastLoginFrom": {Column: "users.last_login_at", Kind: query.KindDateFrom},
		"lastLoginTo":   {Column: "users.last_login_at", Kind: query.KindDateTo},
		"search":        {Kind: query.KindSearch, Columns: []string{"users.email", "users.display_name"}},
	}
}
