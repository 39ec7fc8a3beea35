// Package taxonomy describes the rhetorical roles a sentence can take and
// their canonical reading order.
package taxonomy

import (
	"slices"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Role is one rhetorical category.
type Role struct {
	Name string `json:"name"`
	Desc string `json:"description"`
}

// Default returns the built-in roles in reading order.
func Default() []Role {
	return []Role{
		{Name: model.Background, Desc: "Context and motivation: what is known and why the study matters"},
		{Name: model.Objective, Desc: "The question, aim or hypothesis the study addresses"},
		{Name: model.Methods, Desc: "Design, participants, interventions and measurements"},
		{Name: model.Results, Desc: "Findings, effect sizes and statistical outcomes"},
		{Name: model.Conclusions, Desc: "Interpretation and implications of the findings"},
	}
}

// Describe returns the description of name, or "" for an unknown role.
func Describe(name string) string {
	for _, r := range Default() {
		if r.Name == name {
			return r.Desc
		}
	}
	return ""
}

// rank orders known roles by reading order and unknown names after them.
func rank(name string) int {
	if i := slices.Index(model.Roles, name); i >= 0 {
		return i
	}
	return len(model.Roles)
}

// Order returns names sorted into reading order. Unknown names keep their
// relative order after the known roles.
func Order(names []string) []string {
	out := slices.Clone(names)
	slices.SortStableFunc(out, func(a, b string) int { return rank(a) - rank(b) })
	return out
}
