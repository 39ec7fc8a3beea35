package model

// Rhetorical roles a sentence of a structured abstract can take.
const (
	Background  = "BACKGROUND"
	Objective   = "OBJECTIVE"
	Methods     = "METHODS"
	Results     = "RESULTS"
	Conclusions = "CONCLUSIONS"
)

// Roles lists the rhetorical roles in display order.
var Roles = []string{Background, Objective, Methods, Results, Conclusions}
