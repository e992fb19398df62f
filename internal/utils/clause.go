package querybuilder

// Condition is one WHERE clause fragment. Conditions are joined with AND.
type Condition struct {
	clause string
	args   []interface{}
}
