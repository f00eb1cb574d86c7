// Package stdlib describes the fixed set of standard library functions the
// compiler knows how to emit calls to. The registry is process-wide and
// immutable: it is built once on first access and never mutated afterward,
// because the available function set is fixed per compiler build. The
// checker and the code generator both receive it explicitly.
package stdlib

import (
	"sync"

	"github.com/AlexTDWilkinson/Nail-sub000/internal/lexer"
)

// Group identifies the stdlib namespace a function belongs to.
type Group string

const (
	GroupMath    Group = "math"
	GroupString  Group = "string"
	GroupArray   Group = "array"
	GroupIO      Group = "io"
	GroupFS      Group = "fs"
	GroupEnv     Group = "env"
	GroupProcess Group = "process"
	GroupParse   Group = "parse"
	GroupHTTP    Group = "http"
	GroupDB      Group = "db"
	GroupJSON    Group = "json"
	GroupTime    Group = "time"
)

// Function is the code generator's view of one stdlib function.
type Function struct {
	Path          string   // target call path
	IsAsync       bool     // emit a .await suffix
	Dependencies  []string // cargo crates the generated program needs
	StructDerives []string // derives required on user structs when used
	Group         Group
}

// FunctionType is the type checker's view of the same function. A
// zero-value (unknown) descriptor in Params or Return means "not checked",
// used for functions generic over their element type.
type FunctionType struct {
	Params []lexer.TypeDesc
	Return lexer.TypeDesc
}

// Registry holds both tables, keyed by exact function-name match.
type Registry struct {
	funcs map[string]Function
	types map[string]FunctionType
}

// Lookup returns the emission metadata for a stdlib function name.
func (r *Registry) Lookup(name string) (Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// LookupType returns the type signature for a stdlib function name.
func (r *Registry) LookupType(name string) (FunctionType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return len(r.funcs) }

// TrustedGroup reports whether calls into the group are emitted wrapped in
// an unconditional unwrap. This is a blanket policy for I/O-ish namespaces
// and the two numeric-parsing helpers rather than per-call propagation.
func TrustedGroup(g Group) bool {
	switch g {
	case GroupIO, GroupFS, GroupEnv, GroupProcess, GroupParse:
		return true
	default:
		return false
	}
}

// Default returns the shared registry, built once.
var Default = sync.OnceValue(build)

var (
	tInt    = lexer.TypeDesc{Kind: lexer.TypeInt}
	tFloat  = lexer.TypeDesc{Kind: lexer.TypeFloat}
	tString = lexer.TypeDesc{Kind: lexer.TypeString}
	tBool   = lexer.TypeDesc{Kind: lexer.TypeBoolean}
	tVoid   = lexer.TypeDesc{Kind: lexer.TypeVoid}
	tAny    = lexer.TypeDesc{} // unchecked
)

func build() *Registry {
	r := &Registry{
		funcs: make(map[string]Function),
		types: make(map[string]FunctionType),
	}

	add := func(name string, f Function, t FunctionType) {
		r.funcs[name] = f
		r.types[name] = t
	}

	// Math helpers map onto the target's float intrinsics.
	add("math_sqrt", Function{Path: "std_lib::math::sqrt", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat}, Return: tFloat})
	add("math_pow", Function{Path: "std_lib::math::pow", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat, tFloat}, Return: tFloat})
	add("math_abs", Function{Path: "std_lib::math::abs", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat}, Return: tFloat})
	add("math_round", Function{Path: "std_lib::math::round", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat}, Return: tInt})
	add("math_floor", Function{Path: "std_lib::math::floor", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat}, Return: tInt})
	add("math_ceil", Function{Path: "std_lib::math::ceil", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat}, Return: tInt})
	add("math_max", Function{Path: "std_lib::math::max", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat, tFloat}, Return: tFloat})
	add("math_min", Function{Path: "std_lib::math::min", Group: GroupMath}, FunctionType{Params: []lexer.TypeDesc{tFloat, tFloat}, Return: tFloat})
	add("math_random", Function{Path: "std_lib::math::random", Group: GroupMath, Dependencies: []string{"rand"}}, FunctionType{Return: tFloat})

	add("string_len", Function{Path: "std_lib::string::len", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tInt})
	add("string_concat", Function{Path: "std_lib::string::concat", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: tString})
	add("string_contains", Function{Path: "std_lib::string::contains", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: tBool})
	add("string_split", Function{Path: "std_lib::string::split", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: lexer.TypeDesc{Kind: lexer.TypeArrayString}})
	add("string_trim", Function{Path: "std_lib::string::trim", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tString})
	add("string_to_upper", Function{Path: "std_lib::string::to_upper", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tString})
	add("string_to_lower", Function{Path: "std_lib::string::to_lower", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tString})
	add("string_replace", Function{Path: "std_lib::string::replace", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tString, tString, tString}, Return: tString})
	add("string_from", Function{Path: "std_lib::string::from", Group: GroupString}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tString})

	add("array_len", Function{Path: "std_lib::array::len", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tInt})
	add("array_push", Function{Path: "std_lib::array::push", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny, tAny}, Return: tAny})
	add("array_get", Function{Path: "std_lib::array::get", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny, tInt}, Return: tAny})
	add("array_join", Function{Path: "std_lib::array::join", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny, tString}, Return: tString})
	add("array_sort", Function{Path: "std_lib::array::sort", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tAny})
	add("array_contains", Function{Path: "std_lib::array::contains", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny, tAny}, Return: tBool})
	add("array_reverse", Function{Path: "std_lib::array::reverse", Group: GroupArray}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tAny})

	add("print", Function{Path: "std_lib::print::print", IsAsync: true, Group: GroupIO}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tVoid})
	add("io_read_line", Function{Path: "std_lib::io::read_line", IsAsync: true, Group: GroupIO, Dependencies: []string{"tokio"}}, FunctionType{Return: tString})

	add("fs_read", Function{Path: "std_lib::fs::read", IsAsync: true, Group: GroupFS, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tString})
	add("fs_write", Function{Path: "std_lib::fs::write", IsAsync: true, Group: GroupFS, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: tVoid})
	add("fs_append", Function{Path: "std_lib::fs::append", IsAsync: true, Group: GroupFS, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: tVoid})
	add("fs_exists", Function{Path: "std_lib::fs::exists", IsAsync: true, Group: GroupFS, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tBool})
	add("fs_delete", Function{Path: "std_lib::fs::delete", IsAsync: true, Group: GroupFS, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tVoid})

	add("env_get", Function{Path: "std_lib::env::get", Group: GroupEnv}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tString})
	add("env_set", Function{Path: "std_lib::env::set", Group: GroupEnv}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: tVoid})
	add("env_args", Function{Path: "std_lib::env::args", Group: GroupEnv}, FunctionType{Return: lexer.TypeDesc{Kind: lexer.TypeArrayString}})

	add("process_exit", Function{Path: "std_lib::process::exit", Group: GroupProcess}, FunctionType{Params: []lexer.TypeDesc{tInt}, Return: tVoid})
	add("process_sleep", Function{Path: "std_lib::process::sleep", IsAsync: true, Group: GroupProcess, Dependencies: []string{"tokio"}}, FunctionType{Params: []lexer.TypeDesc{tInt}, Return: tVoid})

	// The two numeric-parsing helpers share the trusted blanket unwrap.
	add("parse_int", Function{Path: "std_lib::parse::parse_int", Group: GroupParse}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tInt})
	add("parse_float", Function{Path: "std_lib::parse::parse_float", Group: GroupParse}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: tFloat})

	add("http_get", Function{Path: "std_lib::http::get", IsAsync: true, Group: GroupHTTP, Dependencies: []string{"reqwest", "tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: lexer.Fallible(tString)})
	add("http_post", Function{Path: "std_lib::http::post", IsAsync: true, Group: GroupHTTP, Dependencies: []string{"reqwest", "tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: lexer.Fallible(tString)})

	add("db_connect", Function{Path: "std_lib::db::connect", IsAsync: true, Group: GroupDB, Dependencies: []string{"sqlx", "tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: lexer.Fallible(tString)})
	add("db_query", Function{Path: "std_lib::db::query", IsAsync: true, Group: GroupDB, Dependencies: []string{"sqlx", "tokio"}, StructDerives: []string{"serde::Serialize", "serde::Deserialize"}}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: lexer.Fallible(tString)})
	add("db_execute", Function{Path: "std_lib::db::execute", IsAsync: true, Group: GroupDB, Dependencies: []string{"sqlx", "tokio"}}, FunctionType{Params: []lexer.TypeDesc{tString, tString}, Return: lexer.Fallible(tInt)})

	add("json_parse", Function{Path: "std_lib::json::parse", Group: GroupJSON, Dependencies: []string{"serde", "serde_json"}, StructDerives: []string{"serde::Serialize", "serde::Deserialize"}}, FunctionType{Params: []lexer.TypeDesc{tString}, Return: lexer.Fallible(tString)})
	add("json_stringify", Function{Path: "std_lib::json::stringify", Group: GroupJSON, Dependencies: []string{"serde", "serde_json"}, StructDerives: []string{"serde::Serialize", "serde::Deserialize"}}, FunctionType{Params: []lexer.TypeDesc{tAny}, Return: tString})

	add("time_now", Function{Path: "std_lib::time::now", Group: GroupTime}, FunctionType{Return: tInt})

	return r
}
