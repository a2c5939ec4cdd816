package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind selects the SQL shape a filter field compiles to.
type Kind int

const (
	// KindExact compiles to "col = ?" with the raw value.
	KindExact Kind = iota
	// KindBool compiles to "col = ?" with a parsed boolean.
	KindBool
	// KindContains compiles to a case-insensitive LIKE against one column.
	KindContains
	// KindIn compiles to "col IN ?" with the full value list.
	KindIn
	// KindNumber compiles to "col = ?" with a parsed integer.
	KindNumber
	// KindNumberFrom compiles to "col >= ?" with a parsed integer.
	KindNumberFrom
	// KindNumberTo compiles to "col <= ?" with a parsed integer.
	KindNumberTo
	// KindDateFrom compiles to "col >= ?" with a parsed timestamp.
	KindDateFrom
	// KindDateTo compiles to "col <= ?", bare dates extended to end of day.
	KindDateTo
	// KindPresence compiles to IS NOT NULL when true, IS NULL when false.
	KindPresence
	// KindDerivedNull inverts presence: true means the column IS NULL.
	KindDerivedNull
	// KindAgeFrom maps a minimum age onto a birth year upper bound.
	KindAgeFrom
	// KindAgeTo maps a maximum age onto a birth year lower bound.
	KindAgeTo
	// KindSearch ORs a case-insensitive LIKE across several columns.
	KindSearch
	// KindEmailDomain matches addresses on the mailbox's domain part.
	KindEmailDomain
	// KindOlderThanDays matches rows whose timestamp is at least N days
	// in the past. A NULL timestamp counts as older than any bound.
	KindOlderThanDays
	// KindClause toggles the fixed SQL fragment in FieldSpec.Clause with
	// a parsed boolean: true applies it, false negates it.
	KindClause
)

// FieldSpec describes how one filter key compiles to SQL.
type FieldSpec struct {
	Column string
	Kind   Kind
	// Columns is used by KindSearch instead of Column.
	Columns []string
	// Clause is the fixed SQL fragment behind KindClause. It is declared
	// in the field table and never carries request-supplied values.
	Clause string
	// SupersededBy names an array-form key that wins when both are present,
	// e.g. a scalar "status" yielding to a "statuses" list.
	SupersededBy string
}

// FieldTable maps filter keys to their compilation specs. One table per
// resource is declared next to its repository.
type FieldTable map[string]FieldSpec

// Predicate is one compiled WHERE fragment. Expr contains only column names,
// operators and ? placeholders; every request-supplied value travels in Args.
type Predicate struct {
	Expr string
	Args []any
}

// Compile turns normalized filters into predicates using the field table.
// Keys missing from the table and values that fail to parse are skipped.
// Output order is deterministic regardless of map iteration.
func Compile(filters Filters, table FieldTable) []Predicate {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		if _, ok := table[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	predicates := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		spec := table[key]
		if spec.SupersededBy != "" && filters.Has(spec.SupersededBy) {
			continue
		}
		if pred, ok := compileField(spec, filters[key]); ok {
			predicates = append(predicates, pred)
		}
	}
	return predicates
}

func compileField(spec FieldSpec, values []string) (Predicate, bool) {
	first := values[0]

	switch spec.Kind {
	case KindExact:
		return Predicate{Expr: spec.Column + " = ?", Args: []any{first}}, true

	case KindBool:
		flag, err := strconv.ParseBool(first)
		if err != nil {
			return Predicate{}, false
		}
		return Predicate{Expr: spec.Column + " = ?", Args: []any{flag}}, true

	case KindContains:
		return Predicate{
			Expr: "LOWER(" + spec.Column + ") LIKE ?",
			Args: []any{"%" + strings.ToLower(first) + "%"},
		}, true

	case KindIn:
		return Predicate{Expr: spec.Column + " IN ?", Args: []any{values}}, true

	case KindNumber:
		number, err := strconv.Atoi(first)
		if err != nil {
			return Predicate{}, false
		}
		return Predicate{Expr: spec.Column + " = ?", Args: []any{number}}, true

	case KindNumberFrom, KindNumberTo:
		number, err := strconv.Atoi(first)
		if err != nil {
			return Predicate{}, false
		}
		op := ">="
		if spec.Kind == KindNumberTo {
			op = "<="
		}
		return Predicate{Expr: fmt.Sprintf("%s %s ?", spec.Column, op), Args: []any{number}}, true

	case KindDateFrom:
		ts, ok := ParseDate(first, false)
		if !ok {
			return Predicate{}, false
		}
		return Predicate{Expr: spec.Column + " >= ?", Args: []any{ts}}, true

	case KindDateTo:
		ts, ok := ParseDate(first, true)
		if !ok {
			return Predicate{}, false
		}
		return Predicate{Expr: spec.Column + " <= ?", Args: []any{ts}}, true

	case KindPresence:
		flag, err := strconv.ParseBool(first)
		if err != nil {
			return Predicate{}, false
		}
		return nullPredicate(spec.Column, !flag), true

	case KindDerivedNull:
		flag, err := strconv.ParseBool(first)
		if err != nil {
			return Predicate{}, false
		}
		return nullPredicate(spec.Column, flag), true

	case KindAgeFrom, KindAgeTo:
		age, err := strconv.Atoi(first)
		if err != nil || age < 0 {
			return Predicate{}, false
		}
		// An age bound in calendar years maps to the inverse birth year
		// bound: older people have smaller birth years.
		year := time.Now().UTC().Year() - age
		op := "<="
		if spec.Kind == KindAgeTo {
			op = ">="
		}
		return Predicate{Expr: fmt.Sprintf("%s %s ?", spec.Column, op), Args: []any{year}}, true

	case KindSearch:
		if len(spec.Columns) == 0 {
			return Predicate{}, false
		}
		term := "%" + strings.ToLower(first) + "%"
		parts := make([]string, 0, len(spec.Columns))
		args := make([]any, 0, len(spec.Columns))
		for _, column := range spec.Columns {
			parts = append(parts, "LOWER("+column+") LIKE ?")
			args = append(args, term)
		}
		return Predicate{Expr: "(" + strings.Join(parts, " OR ") + ")", Args: args}, true

	case KindEmailDomain:
		domain := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(first, "@")))
		if domain == "" {
			return Predicate{}, false
		}
		return Predicate{
			Expr: "LOWER(" + spec.Column + ") LIKE ?",
			Args: []any{"%@" + domain},
		}, true

	case KindOlderThanDays:
		days, err := strconv.Atoi(first)
		if err != nil || days < 0 {
			return Predicate{}, false
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		return Predicate{
			Expr: "(" + spec.Column + " IS NULL OR " + spec.Column + " <= ?)",
			Args: []any{cutoff},
		}, true

	case KindClause:
		if spec.Clause == "" {
			return Predicate{}, false
		}
		flag, err := strconv.ParseBool(first)
		if err != nil {
			return Predicate{}, false
		}
		if flag {
			return Predicate{Expr: "(" + spec.Clause + ")"}, true
		}
		return Predicate{Expr: "NOT (" + spec.Clause + ")"}, true
	}

	return Predicate{}, false
}

func nullPredicate(column string, wantNull bool) Predicate {
	if wantNull {
		return Predicate{Expr: column + " IS NULL"}
	}
	return Predicate{Expr: column + " IS NOT NULL"}
}
