package recipe

import (
	"fmt"
	"strings"
)

// Operation combines substring predicates.
type Operation string

const (
	OpAnd Operation = "and"
	OpOr  Operation = "or"
	// OpNot matches when none of the predicates do.
	OpNot Operation = "not"
)

// Operations lists the accepted operation names.
func Operations() []Operation {
	return []Operation{OpAnd, OpOr, OpNot}
}

// ParseOperation accepts and, or and not in any case.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpAnd, OpOr, OpNot:
		return op, nil
	}
	names := make([]string, 0, 3)
	for _, o := range Operations() {
		names = append(names, string(o))
	}
	return "", fmt.Errorf("%w: cannot convert %s into operation. Available operations: %s",
		ErrUnknownOperation, s, strings.Join(names, ", "))
}

// Criteria is the structured search: every non-empty part must match.
type Criteria struct {
	Title       string
	Ingredients []string
	Keywords    []string
}

func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Title) == "" && len(c.Ingredients) == 0 && len(c.Keywords) == 0
}

// NewCriteria builds criteria from raw form input.
func NewCriteria(title, ingredients, keywords string) Criteria {
	return Criteria{
		Title:       strings.TrimSpace(title),
		Ingredients: ParseIngredients(ingredients),
		Keywords:    ParseKeywords(keywords),
	}
}

// ParseKeywords splits on commas, trims and drops empty tokens.
func ParseKeywords(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ParseIngredients splits on whitespace.
func ParseIngredients(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
