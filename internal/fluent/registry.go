package fluent

// Registry owns every declared Schema and every ground fluent produced
// from it, indexed both by compiled integer index and by (name, args)
// key so the grounder can resolve a schematic VarCall to the right ground
// reference (one ground fluent per parameter tuple).
type Registry struct {
	Schemas map[string]*Schema

	StateFluents  []*StateFluent
	ActionFluents []*ActionFluent
	IntermFluents []*IntermFluent
	NonFluents    []*NonFluent

	stateIndex  map[Key]int
	actionIndex map[Key]int
	intermIndex map[Key]int
	nonFluent   map[Key]int
}

// NewRegistry returns an empty registry ready to accept schemas and
// ground fluents.
func NewRegistry() *Registry {
	return &Registry{
		Schemas:     map[string]*Schema{},
		stateIndex:  map[Key]int{},
		actionIndex: map[Key]int{},
		intermIndex: map[Key]int{},
		nonFluent:   map[Key]int{},
	}
}

// DeclareSchema registers a schematic variable. Re-declaring the same
// name overwrites the previous schema.
func (r *Registry) DeclareSchema(s *Schema) { r.Schemas[s.Name] = s }

// Schema looks up a declared schema by name.
func (r *Registry) Schema(name string) (*Schema, bool) {
	s, ok := r.Schemas[name]
	return s, ok
}

// AddStateFluent registers a new ground state fluent and assigns it the
// next free state-fluent index. Indices are reassigned by the compiler
// once the deterministic/probabilistic ordering invariant is
// known; this index is provisional declaration order.
func (r *Registry) AddStateFluent(name string, args []string) *StateFluent {
	f := &StateFluent{Name: name, Args: append([]string(nil), args...), Index: len(r.StateFluents)}
	r.StateFluents = append(r.StateFluents, f)
	r.stateIndex[NewKey(name, args)] = f.Index
	return f
}

// AddActionFluent registers a new ground action fluent.
func (r *Registry) AddActionFluent(name string, args []string) *ActionFluent {
	f := &ActionFluent{Name: name, Args: append([]string(nil), args...), Index: len(r.ActionFluents)}
	r.ActionFluents = append(r.ActionFluents, f)
	r.actionIndex[NewKey(name, args)] = f.Index
	return f
}

// AddIntermFluent registers a new ground intermediate fluent at the given
// stratification level.
func (r *Registry) AddIntermFluent(name string, args []string, stratum int) *IntermFluent {
	f := &IntermFluent{Name: name, Args: append([]string(nil), args...), Index: len(r.IntermFluents), Stratum: stratum}
	r.IntermFluents = append(r.IntermFluents, f)
	r.intermIndex[NewKey(name, args)] = f.Index
	return f
}

// AddNonFluent registers a new ground non-fluent with its (already known)
// constant value.
func (r *Registry) AddNonFluent(name string, args []string, value float64) *NonFluent {
	f := &NonFluent{Name: name, Args: append([]string(nil), args...), Index: len(r.NonFluents), Value: value}
	r.NonFluents = append(r.NonFluents, f)
	r.nonFluent[NewKey(name, args)] = f.Index
	return f
}

func (r *Registry) LookupState(name string, args []string) (*StateFluent, bool) {
	i, ok := r.stateIndex[NewKey(name, args)]
	if !ok {
		return nil, false
	}
	return r.StateFluents[i], true
}

func (r *Registry) LookupAction(name string, args []string) (*ActionFluent, bool) {
	i, ok := r.actionIndex[NewKey(name, args)]
	if !ok {
		return nil, false
	}
	return r.ActionFluents[i], true
}

func (r *Registry) LookupInterm(name string, args []string) (*IntermFluent, bool) {
	i, ok := r.intermIndex[NewKey(name, args)]
	if !ok {
		return nil, false
	}
	return r.IntermFluents[i], true
}

func (r *Registry) LookupNonFluent(name string, args []string) (*NonFluent, bool) {
	i, ok := r.nonFluent[NewKey(name, args)]
	if !ok {
		return nil, false
	}
	return r.NonFluents[i], true
}

// Reindex reassigns StateFluent.Index (and the backing lookup table) to
// match the current slice order, used by the compiler after it has
// resorted StateFluents so that all deterministic fluents precede all
// probabilistic ones (firstProbabilisticVarIndex).
func (r *Registry) Reindex() {
	for i, f := range r.StateFluents {
		f.Index = i
		r.stateIndex[NewKey(f.Name, f.Args)] = i
	}
}
