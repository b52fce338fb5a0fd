// Package rddl is the boundary between the external RDDL surface-syntax
// parser and the planning core: it reads a task document (the parsed
// domain/instance pair in YAML form) into the grounder's schematic input
// contract, and persists/loads the preprocessed ground task so a rerun
// can skip grounding entirely. The surface-syntax tokeniser itself is an
// external collaborator; this package only consumes its output shape — a
// type hierarchy, schemas, CPF/precondition expression trees and the
// instance scalars.
package rddl

import (
	"os"

	"gopkg.in/yaml.v3"

	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/planerr"
)

// TaskDoc is the top-level task document: one domain plus one instance,
// the two text blobs the planner receives per problem.
type TaskDoc struct {
	Domain   DomainDoc   `yaml:"domain"`
	Instance InstanceDoc `yaml:"instance"`
}

// TypeDoc declares one named type under an optional parent (empty
// parent means the "object" root).
type TypeDoc struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// ObjectsDoc declares the ordered object sequence of one type.
type ObjectsDoc struct {
	Type  string   `yaml:"type"`
	Names []string `yaml:"names"`
}

// VariableDoc declares one schematic parametrized variable.
type VariableDoc struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params,omitempty"`
	Kind    string   `yaml:"kind"`
	Type    string   `yaml:"type"`
	Default float64  `yaml:"default,omitempty"`
	Stratum int      `yaml:"stratum,omitempty"`
}

// CPFDoc is one schematic CPF definition: the head schema name, the
// parameter names bound one-to-one with the head's parameter types, and
// the body expression.
type CPFDoc struct {
	Head   string   `yaml:"head"`
	Params []string `yaml:"params,omitempty"`
	Body   *ExprDoc `yaml:"body"`
}

// PreconditionDoc is one boolean action/state constraint.
type PreconditionDoc struct {
	Body *ExprDoc `yaml:"body"`
}

// DomainDoc is the domain half of a task document.
type DomainDoc struct {
	Types         []TypeDoc         `yaml:"types,omitempty"`
	Objects       []ObjectsDoc      `yaml:"objects,omitempty"`
	Variables     []VariableDoc     `yaml:"variables"`
	CPFs          []CPFDoc          `yaml:"cpfs"`
	Reward        *ExprDoc          `yaml:"reward"`
	Preconditions []PreconditionDoc `yaml:"preconditions,omitempty"`
}

// AssignmentDoc sets one ground fluent's value: non-fluent constants and
// initial-state entries share this shape.
type AssignmentDoc struct {
	Name  string   `yaml:"name"`
	Args  []string `yaml:"args,omitempty"`
	Value float64  `yaml:"value"`
}

// InstanceDoc is the instance half of a task document.
type InstanceDoc struct {
	NonFluents        []AssignmentDoc `yaml:"nonFluents,omitempty"`
	Init              []AssignmentDoc `yaml:"init,omitempty"`
	Horizon           int             `yaml:"horizon"`
	ConcurrentActions int             `yaml:"concurrentActions"`
	Discount          float64         `yaml:"discount,omitempty"`
}

// LoadTask reads a task document from path and decodes it into the
// grounder's schematic/instance input pair.
func LoadTask(path string) (*grounder.Schematic, *grounder.Instance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, planerr.Wrap(planerr.KindParse, path, err)
	}
	doc := &TaskDoc{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, nil, planerr.Wrap(planerr.KindParse, path, err)
	}
	return DecodeTask(doc)
}

// DecodeTask turns a task document into the grounder's input contract,
// failing loudly on undeclared types/objects/schemas and malformed
// scalars (ParseError and UndefinedReference are fatal).
func DecodeTask(doc *TaskDoc) (*grounder.Schematic, *grounder.Instance, error) {
	universe := objects.NewUniverse()
	for _, t := range doc.Domain.Types {
		if t.Parent != "" {
			if _, ok := universe.Type(t.Parent); !ok {
				return nil, nil, planerr.New(planerr.KindUndefinedReference, t.Parent, "parent type not declared before "+t.Name)
			}
		}
		universe.DeclareType(t.Name, t.Parent)
	}
	for _, group := range doc.Domain.Objects {
		if _, ok := universe.Type(group.Type); !ok {
			return nil, nil, planerr.New(planerr.KindUndefinedReference, group.Type, "object group names an undeclared type")
		}
		for _, name := range group.Names {
			if _, err := universe.AddObject(group.Type, name); err != nil {
				return nil, nil, planerr.Wrap(planerr.KindParse, name, err)
			}
		}
	}

	registry := fluent.NewRegistry()
	for _, v := range doc.Domain.Variables {
		kind, err := parseKind(v.Kind)
		if err != nil {
			return nil, nil, err
		}
		valueType, err := parseValueType(v.Type)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range v.Params {
			if _, ok := universe.Type(p); !ok {
				return nil, nil, planerr.New(planerr.KindUndefinedReference, p, "parameter type of "+v.Name+" not declared")
			}
		}
		registry.DeclareSchema(&fluent.Schema{
			Name:       v.Name,
			ParamTypes: append([]string(nil), v.Params...),
			Kind:       kind,
			ValueType:  valueType,
			Default:    v.Default,
			Stratum:    v.Stratum,
		})
	}

	schematic := &grounder.Schematic{Universe: universe, Registry: registry}
	for _, c := range doc.Domain.CPFs {
		schema, ok := registry.Schema(c.Head)
		if !ok {
			return nil, nil, planerr.New(planerr.KindUndefinedReference, c.Head, "CPF head names an undeclared variable")
		}
		if len(c.Params) != schema.Arity() {
			return nil, nil, planerr.New(planerr.KindTypeMismatch, c.Head, "CPF parameter count differs from the schema's arity")
		}
		body, err := DecodeExpr(c.Body, universe)
		if err != nil {
			return nil, nil, err
		}
		schematic.CPFs = append(schematic.CPFs, grounder.SchematicCPF{
			Head:       c.Head,
			ParamNames: append([]string(nil), c.Params...),
			Body:       body,
		})
	}

	if doc.Domain.Reward == nil {
		return nil, nil, planerr.New(planerr.KindParse, "reward", "domain declares no reward expression")
	}
	reward, err := DecodeExpr(doc.Domain.Reward, universe)
	if err != nil {
		return nil, nil, err
	}
	schematic.Reward = grounder.SchematicCPF{Body: reward}

	for _, p := range doc.Domain.Preconditions {
		body, err := DecodeExpr(p.Body, universe)
		if err != nil {
			return nil, nil, err
		}
		schematic.Preconditions = append(schematic.Preconditions, grounder.SchematicPrecondition{Body: body})
	}

	inst, err := decodeInstance(&doc.Instance)
	if err != nil {
		return nil, nil, err
	}
	return schematic, inst, nil
}

func decodeInstance(doc *InstanceDoc) (*grounder.Instance, error) {
	if doc.Horizon <= 0 {
		return nil, planerr.New(planerr.KindParse, "horizon", "must be a positive integer")
	}
	if doc.ConcurrentActions <= 0 {
		return nil, planerr.New(planerr.KindParse, "concurrentActions", "must be a positive integer")
	}
	discount := doc.Discount
	if discount == 0 {
		discount = 1.0
	}
	if discount <= 0 || discount > 1 {
		return nil, planerr.New(planerr.KindParse, "discount", "must lie in (0, 1]")
	}

	inst := &grounder.Instance{
		NonFluentValues:   map[fluent.Key]float64{},
		InitialState:      map[fluent.Key]float64{},
		Horizon:           doc.Horizon,
		ConcurrentActions: doc.ConcurrentActions,
		Discount:          discount,
	}
	for _, a := range doc.NonFluents {
		inst.NonFluentValues[fluent.NewKey(a.Name, a.Args)] = a.Value
	}
	for _, a := range doc.Init {
		inst.InitialState[fluent.NewKey(a.Name, a.Args)] = a.Value
	}
	return inst, nil
}

func parseKind(s string) (fluent.Kind, error) {
	switch s {
	case "state-fluent":
		return fluent.StateFluentKind, nil
	case "action-fluent":
		return fluent.ActionFluentKind, nil
	case "interm-fluent":
		return fluent.IntermFluentKind, nil
	case "non-fluent":
		return fluent.NonFluentKind, nil
	default:
		return 0, planerr.New(planerr.KindParse, s, "unknown variable kind")
	}
}

func parseValueType(s string) (fluent.ValueType, error) {
	switch s {
	case "bool":
		return fluent.Bool, nil
	case "int":
		return fluent.Int, nil
	case "real":
		return fluent.Real, nil
	case "object":
		return fluent.ObjectValue, nil
	default:
		return 0, planerr.New(planerr.KindParse, s, "unknown value type")
	}
}
