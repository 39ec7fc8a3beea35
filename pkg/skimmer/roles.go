package skimmer

import "github.com/crimson-sun/skimmer/internal/engine/taxonomy"

// Role describes one rhetorical role.
type Role struct {
	Name        string // e.g. "METHODS"
	Description string
}

// Roles returns the built-in roles in reading order. This is read-only.
func Roles() []Role {
	def := taxonomy.Default()
	out := make([]Role, len(def))
	for i, r := range def {
		out[i] = Role{Name: r.Name, Description: r.Desc}
	}
	return out
}

// Labels returns the roles the loaded model can predict, in the order of
// its output layer.
func (s *Skimmer) Labels() []string {
	return append([]string(nil), s.manifest.Statistics.Labels.Categories...)
}
