package types

import "github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"

// Symbol represents a named binding in the source code.
type Symbol struct {
	Name    string
	Type    lexer.TypeDesc
	Mutable bool
	Used    bool
	Span    lexer.Span
}

// Scope is one frame of the lexical scope stack. Lookup walks outward
// through parents; insertion order is preserved so unused-symbol warnings
// come out in declaration order.
type Scope struct {
	Parent  *Scope
	symbols map[string]*Symbol
	order   []string
}

// NewScope creates a new scope with an optional parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		Parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Insert adds a symbol to this scope. It returns false when the name is
// already defined in this same scope (shadowing an outer scope is fine).
func (s *Scope) Insert(sym *Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym.Name)
	return true
}

// Lookup finds a symbol in this scope or any parent scope.
func (s *Scope) Lookup(name string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	if s.Parent != nil {
		return s.Parent.Lookup(name)
	}
	return nil
}

// LookupLocal finds a symbol in this scope only.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.symbols[name]
}

// InOrder returns the scope's symbols in declaration order.
func (s *Scope) InOrder() []*Symbol {
	out := make([]*Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.symbols[name])
	}
	return out
}
