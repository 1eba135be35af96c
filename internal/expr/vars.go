package expr

// variable is a named scalar with its current value and the value it held
// before the most recent assignment. Previous-value tracking exists to
// support the crossover predicates.
type variable struct {
	current  float64
	previous float64
	hasPrev  bool
}

// VarSet holds the named variables visible to condition expressions.
type VarSet struct {
	vars map[string]variable
}

// NewVarSet creates an empty variable set.
func NewVarSet() *VarSet {
	return &VarSet{
		vars: make(map[string]variable),
	}
}

// Set assigns a new current value to name, moving the old current value
// into the previous slot. The pair is updated transactionally: previous
// always reflects exactly one assignment ago, never two reads apart.
func (v *VarSet) Set(name string, value float64) {
	existing, ok := v.vars[name]
	if !ok {
		v.vars[name] = variable{current: value, previous: 0, hasPrev: false}

		return
	}

	v.vars[name] = variable{
		current:  value,
		previous: existing.current,
		hasPrev:  true,
	}
}

// Get returns the current value of name.
func (v *VarSet) Get(name string) (float64, bool) {
	existing, ok := v.vars[name]
	if !ok {
		return 0, false
	}

	return existing.current, true
}

// Previous returns the value name held before its most recent assignment.
// The second return is false until name has been assigned at least twice.
func (v *VarSet) Previous(name string) (float64, bool) {
	existing, ok := v.vars[name]
	if !ok || !existing.hasPrev {
		return 0, false
	}

	return existing.previous, true
}

// Names returns the defined variable names.
func (v *VarSet) Names() []string {
	names := make([]string, 0, len(v.vars))
	for name := range v.vars {
		names = append(names, name)
	}

	return names
}

// Reset removes all variables and their previous values.
func (v *VarSet) Reset() {
	v.vars = make(map[string]variable)
}
