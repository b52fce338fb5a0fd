// Package objects models the object universe: a rooted type hierarchy
// ("object" and "enum" pre-seeded as roots) and, per named type, an
// ordered sequence of objects. An object's identity is its (type,
// index-in-type) pair and is stable for the run; its numeric value
// (used when it is embedded into arithmetic expressions) is its index
// within its primary type.
package objects

import "fmt"

// Root type names, always present.
const (
	RootObject = "object"
	RootEnum   = "enum"
)

// Type is a node in the type hierarchy.
type Type struct {
	Name    string
	Parent  *Type
	Objects []*Object
}

// IsSubtypeOf reports whether t is the same type as, or a descendant of, other.
func (t *Type) IsSubtypeOf(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other || cur.Name == other.Name {
			return true
		}
	}
	return false
}

// Object is a single member of a Type's ordered object sequence.
type Object struct {
	Name  string
	Type  *Type
	Index int // index within Type.Objects; also this object's numeric value
}

// Universe owns the full type hierarchy and the name->object/type lookup tables.
type Universe struct {
	types   map[string]*Type
	objects map[string]*Object
	order   []string // type names in declaration order, for stable iteration
}

// NewUniverse returns a Universe pre-seeded with the "object" and "enum" roots.
func NewUniverse() *Universe {
	u := &Universe{
		types:   make(map[string]*Type),
		objects: make(map[string]*Object),
	}
	u.DeclareType(RootObject, "")
	u.DeclareType(RootEnum, "")
	return u
}

// DeclareType registers a named type with the given parent (empty string
// means "object", the default root). Re-declaring an existing type is a
// no-op so callers needn't track what has already been seen.
func (u *Universe) DeclareType(name, parent string) *Type {
	if t, ok := u.types[name]; ok {
		return t
	}
	var parentType *Type
	if parent != "" {
		parentType = u.types[parent]
	} else if name != RootObject && name != RootEnum {
		parentType = u.types[RootObject]
	}
	t := &Type{Name: name, Parent: parentType}
	u.types[name] = t
	u.order = append(u.order, name)
	return t
}

// Type looks up a declared type by name.
func (u *Universe) Type(name string) (*Type, bool) {
	t, ok := u.types[name]
	return t, ok
}

// TypeNames returns declared type names in the order they were declared
// (leaves are not distinguished from roots here; callers needing a
// leaf-to-root walk should use LeafTypes).
func (u *Universe) TypeNames() []string {
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// AddObject appends a new object to the named type's ordered sequence.
func (u *Universe) AddObject(typeName, objectName string) (*Object, error) {
	t, ok := u.types[typeName]
	if !ok {
		return nil, fmt.Errorf("undefined type %q", typeName)
	}
	if _, exists := u.objects[objectName]; exists {
		return nil, fmt.Errorf("duplicate object %q", objectName)
	}
	obj := &Object{Name: objectName, Type: t, Index: len(t.Objects)}
	t.Objects = append(t.Objects, obj)
	u.objects[objectName] = obj
	return obj, nil
}

// Object looks up a declared object by name.
func (u *Universe) Object(name string) (*Object, bool) {
	o, ok := u.objects[name]
	return o, ok
}

// ObjectsOfType returns every object belonging to t or to any of its
// declared subtypes, in type-then-index order. This is what the grounder
// uses to expand a parameter's substitution domain, since a parameter of
// supertype T accepts objects of any subtype of T.
func (u *Universe) ObjectsOfType(t *Type) []*Object {
	var out []*Object
	for _, name := range u.order {
		candidate := u.types[name]
		if candidate.IsSubtypeOf(t) {
			out = append(out, candidate.Objects...)
		}
	}
	return out
}

// LeafTypes returns every declared type that is not a parent of any
// other type (used to expand parameter types all the way to concrete
// objects even when the schema names an internal/non-leaf type).
func (u *Universe) LeafTypes() []*Type {
	hasChild := make(map[string]bool)
	for _, name := range u.order {
		if p := u.types[name].Parent; p != nil {
			hasChild[p.Name] = true
		}
	}
	var leaves []*Type
	for _, name := range u.order {
		if !hasChild[name] {
			leaves = append(leaves, u.types[name])
		}
	}
	return leaves
}
