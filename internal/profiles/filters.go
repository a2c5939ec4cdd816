package profiles

import "github.com/userforge/userforge-backend/pkg/query"

func listOptions() query.Options {
	return query.Options{
		SortFields: map[string]string{
			"createdAt": "user_profiles.created_at",
			"updatedAt": "user_profiles.updated_at",
			"company":   "user_profiles.company",
			"location":  "user_profiles.location",
		},
		DefaultSort: query.Sort{Field: "user_profiles.created_at", Direction: query.DirectionDesc},
		FilterKeys: []string{
			"role", "roles",
			"location", "locations",
			"company", "companies",
			"jobTitle",
			"isPublic", "showEmail", "showPhone",
			"hasAvatar", "hasBio", "hasPhone", "hasWebsite",
			"isComplete",
			"ageFrom", "ageTo",
			"createdFrom", "createdTo",
			"updatedFrom", "updatedTo",
			"search",
		},
	}
}

func fieldTable() query.FieldTable {
	return query.FieldTable{
		"role":       {Column: "roles.name", Kind: query.KindExact, SupersededBy: "roles"},
		"roles":      {Column: "roles.name", Kind: query.KindIn},
		"location":   {Column: "user_profiles.location", Kind: query.KindContains, SupersededBy: "locations"},
		"locations":  {Column: "user_profiles.location", Kind: query.KindIn},
		"company":    {Column: "user_profiles.company", Kind: query.KindContains, SupersededBy: "companies"},
		"companies":  {Column: "user_profiles.company", Kind: query.KindIn},
		"jobTitle":   {Column: "user_profiles.job_title", Kind: query.KindContains},
		"isPublic":   {Column: "user_profiles.is_public", Kind: query.KindBool},
		"showEmail":  {Column: "user_profiles.show_email", Kind: query.KindBool},
		"showPhone":  {Column: "user_profiles.show_phone", Kind: query.KindBool},
		"hasAvatar":  {Column: "user_profiles.avatar_url", Kind: query.KindPresence},
		"hasBio":     {Column: "user_profiles.bio", Kind: query.KindPresence},
		"hasPhone":   {Column: "user_profiles.phone", Kind: query.KindPresence},
		"hasWebsite": {Column: "user_profiles.website", Kind: query.KindPresence},
		// A profile counts as complete once the fields shown on the
		// public card are all filled in.
		"isComplete": {Kind: query.KindClause,
			Clause: "user_profiles.bio IS NOT NULL AND user_profiles.location IS NOT NULL AND user_profiles.avatar_url IS NOT NULL"},
		"ageFrom":     {Column: "user_profiles.birth_year", Kind: query.KindAgeFrom},
		"ageTo":       {Column: "user_profiles.birth_year", Kind: query.KindAgeTo},
		"createdFrom": {Column: "user_profiles.created_at", Kind: query.KindDateFrom},
		"createdTo":   {Column: "user_profiles.created_at", Kind: query.KindDateTo},
		"updatedFrom": {Column: "user_profiles.updated_at", Kind: query.KindDateFrom},
		"updatedTo":   {Column: "user_profiles.updated_at", Kind: query.KindDateTo},
		"search": {Kind: query.KindSearch, Columns: []string{
			"user_profiles.bio", "user_profiles.company", "user_profiles.job_title", "user_profiles.location",
		}},
	}
}
