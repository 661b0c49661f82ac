// Package license resolves the licenses of a package from three sources:
// declared metadata, curated conclusions and scanner findings.
//
// Expressions are SPDX expression strings. The package deliberately treats
// them structurally (AND conjunction, top-level OR disjunction) without a
// full SPDX parser; validation of individual license identifiers is the
// scanner's and curator's concern.
package license

import (
	"slices"
	"strings"
)

// Join conjoins SPDX expressions with AND. Duplicates and empty strings are
// dropped; operands containing a top-level OR are parenthesized so the
// disjunction binds tighter than the conjunction. Joining a single expression
// returns it unchanged.
func Join(exprs ...string) string {
	var kept []string
	for _, e := range exprs {
		e = strings.TrimSpace(e)
		if e == "" || slices.Contains(kept, e) {
			continue
		}
		kept = append(kept, e)
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}
	for i, e := range kept {
		if len(Disjuncts(e)) > 1 {
			kept[i] = "(" + e + ")"
		}
	}
	return strings.Join(kept, " AND ")
}

// Disjuncts splits an expression on its top-level OR operators and returns
// the operands. Operators inside parentheses do not split; redundant outer
// parentheses around the whole expression are stripped first. An expression
// without a top-level OR yields itself as the single element; an empty
// expression yields nil.
func Disjuncts(expr string) []string {
	expr = stripOuterParens(strings.TrimSpace(expr))
	if expr == "" {
		return nil
	}

	var out []string
	depth, start := 0, 0
	tokens := strings.Fields(expr)
	for i, tok := range tokens {
		depth += strings.Count(tok, "(") - strings.Count(tok, ")")
		if depth == 0 && tok == "OR" {
			out = append(out, stripOuterParens(strings.Join(tokens[start:i], " ")))
			start = i + 1
		}
	}
	out = append(out, stripOuterParens(strings.Join(tokens[start:], " ")))
	return out
}

func stripOuterParens(expr string) string {
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		depth := 0
		for i, r := range expr {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 && i < len(expr)-1 {
				return expr
			}
		}
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

// Choice resolves one OR disjunction to a single operand. Given names the
// disjunctive expression the choice applies to; an empty Given applies to any
// expression that offers Choice as one of its disjuncts.
type Choice struct {
	Given  string `json:"given,omitempty" toml:"given"`
	Choice string `json:"choice" toml:"choice"`
}

// ApplyChoices resolves the expression's top-level OR disjunction using the
// first applicable choice, in slice order. A choice applies when its Given
// matches the expression (or is empty) and its Choice is one of the
// expression's disjuncts. Expressions without a disjunction, and expressions
// no choice applies to, are returned unchanged.
func ApplyChoices(expr string, choices []Choice) string {
	disjuncts := Disjuncts(expr)
	if len(disjuncts) < 2 {
		return expr
	}
	for _, c := range choices {
		if c.Given != "" && c.Given != expr {
			continue
		}
		if slices.Contains(disjuncts, c.Choice) {
			return c.Choice
		}
	}
	return expr
}
