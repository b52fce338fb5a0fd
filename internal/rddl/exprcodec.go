package rddl

import (
	"fmt"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/planerr"
)

// ExprDoc is the YAML form of one expression node: a kind discriminator
// plus whichever operand fields that kind uses. The same shape serves
// both the parser-facing task document (where schematic kinds like
// "var", "param" and the quantifiers appear) and the persisted ground
// task (where only ground kinds survive grounding and simplification).
type ExprDoc struct {
	Kind string `yaml:"kind"`

	Value float64  `yaml:"value,omitempty"`
	Index int      `yaml:"index,omitempty"`
	Name  string   `yaml:"name,omitempty"`
	Args  []string `yaml:"args,omitempty"`

	Children []*ExprDoc `yaml:"children,omitempty"`
	Left     *ExprDoc   `yaml:"left,omitempty"`
	Right    *ExprDoc   `yaml:"right,omitempty"`
	Child    *ExprDoc   `yaml:"child,omitempty"`

	Cond *ExprDoc `yaml:"cond,omitempty"`
	Then *ExprDoc `yaml:"then,omitempty"`
	Else *ExprDoc `yaml:"else,omitempty"`

	Outcomes []OutcomeDoc `yaml:"outcomes,omitempty"`
	Branches []BranchDoc  `yaml:"branches,omitempty"`

	Params     []string `yaml:"params,omitempty"`
	ParamTypes []string `yaml:"paramTypes,omitempty"`
	Body       *ExprDoc `yaml:"body,omitempty"`
}

// OutcomeDoc is one (value, probability) pair of a "discrete" node.
type OutcomeDoc struct {
	Value *ExprDoc `yaml:"value"`
	Prob  *ExprDoc `yaml:"prob"`
}

// BranchDoc is one (condition, value) pair of a "switch" node.
type BranchDoc struct {
	Cond  *ExprDoc `yaml:"cond"`
	Value *ExprDoc `yaml:"value"`
}

// EncodeExpr serialises a node tree into its document form. It is total
// over the expression union so the persisted-task writer never has to
// reason about which kinds a simplified formula may still contain.
func EncodeExpr(n expr.Node) *ExprDoc {
	switch v := n.(type) {
	case expr.Constant:
		return &ExprDoc{Kind: "const", Value: v.Value}
	case expr.StateFluentRef:
		return &ExprDoc{Kind: "state", Index: v.Index, Name: v.Name}
	case expr.ActionFluentRef:
		return &ExprDoc{Kind: "action", Index: v.Index, Name: v.Name}
	case expr.ObjectRef:
		return &ExprDoc{Kind: "object", Name: v.ObjectName, Value: v.Value}
	case expr.ParamRef:
		return &ExprDoc{Kind: "param", Name: v.Name}
	case expr.VarCall:
		return &ExprDoc{Kind: "var", Name: v.Name, Args: v.Args}
	case expr.Conjunction:
		return &ExprDoc{Kind: "and", Children: encodeAll(v.Children)}
	case expr.Disjunction:
		return &ExprDoc{Kind: "or", Children: encodeAll(v.Children)}
	case expr.Equals:
		return &ExprDoc{Kind: "eq", Children: encodeAll(v.Children)}
	case expr.Less:
		return &ExprDoc{Kind: "lt", Left: EncodeExpr(v.Left), Right: EncodeExpr(v.Right)}
	case expr.LessEq:
		return &ExprDoc{Kind: "leq", Left: EncodeExpr(v.Left), Right: EncodeExpr(v.Right)}
	case expr.Greater:
		return &ExprDoc{Kind: "gt", Left: EncodeExpr(v.Left), Right: EncodeExpr(v.Right)}
	case expr.GreaterEq:
		return &ExprDoc{Kind: "geq", Left: EncodeExpr(v.Left), Right: EncodeExpr(v.Right)}
	case expr.Addition:
		return &ExprDoc{Kind: "add", Children: encodeAll(v.Children)}
	case expr.Subtraction:
		return &ExprDoc{Kind: "sub", Children: encodeAll(v.Children)}
	case expr.Multiplication:
		return &ExprDoc{Kind: "mul", Children: encodeAll(v.Children)}
	case expr.Division:
		return &ExprDoc{Kind: "div", Left: EncodeExpr(v.Left), Right: EncodeExpr(v.Right)}
	case expr.Negation:
		return &ExprDoc{Kind: "neg", Child: EncodeExpr(v.Child)}
	case expr.Exponential:
		return &ExprDoc{Kind: "exp", Child: EncodeExpr(v.Child)}
	case expr.KronDelta:
		return &ExprDoc{Kind: "kron", Child: EncodeExpr(v.Child)}
	case expr.Bernoulli:
		return &ExprDoc{Kind: "bernoulli", Child: EncodeExpr(v.P)}
	case expr.Discrete:
		outcomes := make([]OutcomeDoc, len(v.Outcomes))
		for i, o := range v.Outcomes {
			outcomes[i] = OutcomeDoc{Value: EncodeExpr(o.Value), Prob: EncodeExpr(o.Prob)}
		}
		return &ExprDoc{Kind: "discrete", Outcomes: outcomes}
	case expr.IfThenElse:
		return &ExprDoc{Kind: "if", Cond: EncodeExpr(v.Cond), Then: EncodeExpr(v.Then), Else: EncodeExpr(v.Else)}
	case expr.MultiConditionChecker:
		branches := make([]BranchDoc, len(v.Branches))
		for i, b := range v.Branches {
			branches[i] = BranchDoc{Cond: EncodeExpr(b.Cond), Value: EncodeExpr(b.Value)}
		}
		return &ExprDoc{Kind: "switch", Branches: branches}
	case expr.Sum:
		return &ExprDoc{Kind: "sum", Params: v.ParamNames, ParamTypes: v.ParamTypes, Body: EncodeExpr(v.Body)}
	case expr.Product:
		return &ExprDoc{Kind: "prod", Params: v.ParamNames, ParamTypes: v.ParamTypes, Body: EncodeExpr(v.Body)}
	case expr.Forall:
		return &ExprDoc{Kind: "forall", Params: v.ParamNames, ParamTypes: v.ParamTypes, Body: EncodeExpr(v.Body)}
	case expr.Exists:
		return &ExprDoc{Kind: "exists", Params: v.ParamNames, ParamTypes: v.ParamTypes, Body: EncodeExpr(v.Body)}
	default:
		panic(fmt.Sprintf("rddl: unencodable expression %T", n))
	}
}

func encodeAll(children []expr.Node) []*ExprDoc {
	out := make([]*ExprDoc, len(children))
	for i, c := range children {
		out[i] = EncodeExpr(c)
	}
	return out
}

// DecodeExpr rebuilds a node tree from its document form. universe
// resolves "object" literals to their numeric value and may be nil when
// decoding a persisted ground task, in which no object literal survives
// (instantiation collapsed each one to a constant).
func DecodeExpr(d *ExprDoc, universe *objects.Universe) (expr.Node, error) {
	if d == nil {
		return nil, planerr.New(planerr.KindParse, "", "missing expression node")
	}
	switch d.Kind {
	case "const":
		return expr.Constant{Value: d.Value}, nil
	case "state":
		return expr.StateFluentRef{Index: d.Index, Name: d.Name}, nil
	case "action":
		return expr.ActionFluentRef{Index: d.Index, Name: d.Name}, nil
	case "object":
		if universe != nil {
			obj, ok := universe.Object(d.Name)
			if !ok {
				return nil, planerr.New(planerr.KindUndefinedReference, d.Name, "object not declared")
			}
			return expr.ObjectRef{ObjectName: obj.Name, Value: float64(obj.Index)}, nil
		}
		return expr.ObjectRef{ObjectName: d.Name, Value: d.Value}, nil
	case "param":
		return expr.ParamRef{Name: d.Name}, nil
	case "var":
		return expr.VarCall{Name: d.Name, Args: d.Args}, nil
	case "and":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Conjunction{Children: children}, nil
	case "or":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Disjunction{Children: children}, nil
	case "eq":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Equals{Children: children}, nil
	case "add":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Addition{Children: children}, nil
	case "sub":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Subtraction{Children: children}, nil
	case "mul":
		children, err := decodeAll(d.Children, universe)
		if err != nil {
			return nil, err
		}
		return expr.Multiplication{Children: children}, nil
	case "lt", "leq", "gt", "geq", "div":
		left, err := DecodeExpr(d.Left, universe)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpr(d.Right, universe)
		if err != nil {
			return nil, err
		}
		switch d.Kind {
		case "lt":
			return expr.Less{Left: left, Right: right}, nil
		case "leq":
			return expr.LessEq{Left: left, Right: right}, nil
		case "gt":
			return expr.Greater{Left: left, Right: right}, nil
		case "geq":
			return expr.GreaterEq{Left: left, Right: right}, nil
		default:
			return expr.Division{Left: left, Right: right}, nil
		}
	case "neg", "exp", "kron", "bernoulli":
		child, err := DecodeExpr(d.Child, universe)
		if err != nil {
			return nil, err
		}
		switch d.Kind {
		case "neg":
			return expr.Negation{Child: child}, nil
		case "exp":
			return expr.Exponential{Child: child}, nil
		case "kron":
			return expr.KronDelta{Child: child}, nil
		default:
			return expr.Bernoulli{P: child}, nil
		}
	case "discrete":
		outcomes := make([]expr.DiscreteOutcome, len(d.Outcomes))
		for i, o := range d.Outcomes {
			value, err := DecodeExpr(o.Value, universe)
			if err != nil {
				return nil, err
			}
			prob, err := DecodeExpr(o.Prob, universe)
			if err != nil {
				return nil, err
			}
			outcomes[i] = expr.DiscreteOutcome{Value: value, Prob: prob}
		}
		return expr.Discrete{Outcomes: outcomes}, nil
	case "if":
		cond, err := DecodeExpr(d.Cond, universe)
		if err != nil {
			return nil, err
		}
		then, err := DecodeExpr(d.Then, universe)
		if err != nil {
			return nil, err
		}
		els, err := DecodeExpr(d.Else, universe)
		if err != nil {
			return nil, err
		}
		return expr.IfThenElse{Cond: cond, Then: then, Else: els}, nil
	case "switch":
		branches := make([]expr.Branch, len(d.Branches))
		for i, b := range d.Branches {
			cond, err := DecodeExpr(b.Cond, universe)
			if err != nil {
				return nil, err
			}
			value, err := DecodeExpr(b.Value, universe)
			if err != nil {
				return nil, err
			}
			branches[i] = expr.Branch{Cond: cond, Value: value}
		}
		return expr.MultiConditionChecker{Branches: branches}, nil
	case "sum", "prod", "forall", "exists":
		if len(d.Params) != len(d.ParamTypes) {
			return nil, planerr.New(planerr.KindParse, d.Kind, "params and paramTypes differ in length")
		}
		body, err := DecodeExpr(d.Body, universe)
		if err != nil {
			return nil, err
		}
		switch d.Kind {
		case "sum":
			return expr.Sum{ParamNames: d.Params, ParamTypes: d.ParamTypes, Body: body}, nil
		case "prod":
			return expr.Product{ParamNames: d.Params, ParamTypes: d.ParamTypes, Body: body}, nil
		case "forall":
			return expr.Forall{ParamNames: d.Params, ParamTypes: d.ParamTypes, Body: body}, nil
		default:
			return expr.Exists{ParamNames: d.Params, ParamTypes: d.ParamTypes, Body: body}, nil
		}
	default:
		return nil, planerr.New(planerr.KindParse, d.Kind, "unknown expression kind")
	}
}

func decodeAll(docs []*ExprDoc, universe *objects.Universe) ([]expr.Node, error) {
	out := make([]expr.Node, len(docs))
	for i, d := range docs {
		n, err := DecodeExpr(d, universe)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
