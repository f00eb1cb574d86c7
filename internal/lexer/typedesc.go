package lexer

import "strings"

// TypeKind enumerates the closed set of Nail data types.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBoolean
	TypeVoid
	TypeError
	TypeArrayInt
	TypeArrayFloat
	TypeArrayString
	TypeArrayBoolean
	TypeArrayStruct // Name carries the struct name
	TypeArrayEnum   // Name carries the enum name
	TypeStruct      // Name carries the struct name
	TypeEnum        // Name carries the enum name
	TypeAny         // Alts carries the ordered alternatives
)

// TypeDesc describes a Nail data type. The zero value is TypeUnknown.
// The two-element Any([T, Error]) form is the language's fallible result
// union; FailAlternative returns that view.
type TypeDesc struct {
	Kind TypeKind
	Name string
	Alts []TypeDesc
}

var kindNames = map[TypeKind]string{
	TypeUnknown:      "unknown",
	TypeInt:          "i",
	TypeFloat:        "f",
	TypeString:       "s",
	TypeBoolean:      "b",
	TypeVoid:         "v",
	TypeError:        "e",
	TypeArrayInt:     "a:i",
	TypeArrayFloat:   "a:f",
	TypeArrayString:  "a:s",
	TypeArrayBoolean: "a:b",
}

func (d TypeDesc) String() string {
	switch d.Kind {
	case TypeStruct:
		return "struct:" + d.Name
	case TypeEnum:
		return "enum:" + d.Name
	case TypeArrayStruct:
		return "a:struct:" + d.Name
	case TypeArrayEnum:
		return "a:enum:" + d.Name
	case TypeAny:
		parts := make([]string, len(d.Alts))
		for i, a := range d.Alts {
			parts[i] = a.String()
		}
		// The fallible union prints in its surface form.
		if len(d.Alts) == 2 && d.Alts[1].Kind == TypeError {
			return d.Alts[0].String() + "!e"
		}
		return "any(" + strings.Join(parts, "|") + ")"
	default:
		return kindNames[d.Kind]
	}
}

// Equal reports structural equality of two type descriptors.
func (d TypeDesc) Equal(o TypeDesc) bool {
	if d.Kind != o.Kind || d.Name != o.Name || len(d.Alts) != len(o.Alts) {
		return false
	}
	for i := range d.Alts {
		if !d.Alts[i].Equal(o.Alts[i]) {
			return false
		}
	}
	return true
}

// FailAlternative returns (T, true) when d is the two-element fallible union
// Any([T, Error]).
func (d TypeDesc) FailAlternative() (TypeDesc, bool) {
	if d.Kind == TypeAny && len(d.Alts) == 2 && d.Alts[1].Kind == TypeError {
		return d.Alts[0], true
	}
	return TypeDesc{}, false
}

// Fallible wraps a success type into the Any([T, Error]) union.
func Fallible(success TypeDesc) TypeDesc {
	return TypeDesc{Kind: TypeAny, Alts: []TypeDesc{success, {Kind: TypeError}}}
}
