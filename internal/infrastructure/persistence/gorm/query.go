package gorm

import (
	"fmt"
	"strings"

	"github.com/tymenu/tymenu/internal/domain/recipe"
)

// Searchable recipe columns.
const (
	ColumnTitle        = "title"
	ColumnIngredients  = "ingredients"
	ColumnKeywords     = "keywords"
	ColumnInstructions = "instructions"
)

var searchableColumns = map[string]bool{
	ColumnTitle:        true,
	ColumnIngredients:  true,
	ColumnKeywords:     true,
	ColumnInstructions: true,
}

// Predicate is a SQL condition with its bind arguments.
type Predicate struct {
	SQL  string
	Args []interface{}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds the LIKE pattern matching s anywhere. Case is
// folded in SQL so both sides go through the same LOWER.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Contains matches rows whose column contains s, ignoring case as far as
// the database's LOWER does (ASCII only on sqlite).
func Contains(column, s string) Predicate {
	if !searchableColumns[column] {
		panic(fmt.Sprintf("gorm: column %q is not searchable", column))
	}
	return Predicate{
		SQL:  fmt.Sprintf(`LOWER(COALESCE(%s, '')) LIKE LOWER(?) ESCAPE '\'`, column),
		Args: []interface{}{ContainsPattern(s)},
	}
}

// SubstringPredicates returns one contains predicate per substring,
// negated when exclude is set.
func SubstringPredicates(column string, substrings []string, exclude bool) []Predicate {
	preds := make([]Predicate, 0, len(substrings))
	for _, s := range substrings {
		p := Contains(column, s)
		if exclude {
			p.SQL = "NOT (" + p.SQL + ")"
		}
		preds = append(preds, p)
	}
	return preds
}

// Combine joins predicates with op. OpNot matches when none of the
// predicates do. ok is false for an empty list.
func Combine(op recipe.Operation, preds []Predicate) (Predicate, bool) {
	if len(preds) == 0 {
		return Predicate{}, false
	}
	parts := make([]string, len(preds))
	var args []interface{}
	for i, p := range preds {
		parts[i] = "(" + p.SQL + ")"
		args = append(args, p.Args...)
	}
	switch op {
	case recipe.OpOr:
		return Predicate{SQL: strings.Join(parts, " OR "), Args: args}, true
	case recipe.OpNot:
		return Predicate{SQL: "NOT (" + strings.Join(parts, " OR ") + ")", Args: args}, true
	default:
		return Predicate{SQL: strings.Join(parts, " AND "), Args: args}, true
	}
}

// TextPredicate matches s in the title, ingredients, keywords or instructions.
func TextPredicate(s string) Predicate {
	preds := []Predicate{
		Contains(ColumnTitle, s),
		Contains(ColumnIngredients, s),
		Contains(ColumnKeywords, s),
		Contains(ColumnInstructions, s),
	}
	p, _ := Combine(recipe.OpOr, preds)
	return p
}

// CriteriaPredicates returns the predicates for a structured search;
// every one of them must hold.
func CriteriaPredicates(c recipe.Criteria) []Predicate {
	var out []Predicate
	if title := strings.TrimSpace(c.Title); title != "" {
		out = append(out, Contains(ColumnTitle, title))
	}
	if p, ok := Combine(recipe.OpAnd, SubstringPredicates(ColumnIngredients, c.Ingredients, false)); ok {
		out = append(out, p)
	}
	if p, ok := Combine(recipe.OpAnd, SubstringPredicates(ColumnKeywords, c.Keywords, false)); ok {
		out = append(out, p)
	}
	return out
}
