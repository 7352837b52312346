// Package setalg compiles boolean expressions over store-resident sets
// (keys, unions, intersections, differences) into a transactional command
// program that a Redis-like store can execute in one round trip.
//
// A program is a list of commands wrapped in MULTI and EXEC. Intermediate
// results are stored under temporary keys which are deleted before EXEC.
// Program.Result is the position of the command whose reply holds the final
// member list.
package setalg

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	KindKey Kind = iota
	KindUnion
	KindInter
	KindDiff
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindUnion:
		return "union"
	case KindInter:
		return "inter"
	case KindDiff:
		return "diff"
	default:
		return "invalid kind " + strconv.Itoa(int(k))
	}
}

// Set is a node of a set expression tree.
type Set struct {
	Kind Kind
	Key  []byte
	Sets []Set
}

func Key(key []byte) Set     { return Set{Kind: KindKey, Key: key} }
func KeyString(k string) Set { return Set{Kind: KindKey, Key: []byte(k)} }
func Union(sets ...Set) Set  { return Set{Kind: KindUnion, Sets: sets} }
func Inter(sets ...Set) Set  { return Set{Kind: KindInter, Sets: sets} }

// Diff is the first set minus all the others.
func Diff(sets ...Set) Set { return Set{Kind: KindDiff, Sets: sets} }

func (s Set) String() string {
	if s.Kind == KindKey {
		return string(s.Key)
	}
	var buf strings.Builder
	buf.WriteByte('(')
	buf.WriteString(s.Kind.String())
	for _, c := range s.Sets {
		buf.WriteByte(' ')
		buf.WriteString(c.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// Keys returns the distinct leaf keys of the expression in first-seen order.
func (s Set) Keys() []string {
	var keys []string
	seen := make(map[string]bool)
	var walk func(s Set)
	walk = func(s Set) {
		if s.Kind == KindKey {
			if k := string(s.Key); !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			return
		}
		for _, c := range s.Sets {
			walk(c)
		}
	}
	walk(s)
	return keys
}

// Normalize flattens nested unions and intersections, folds the first
// operand of nested differences and unwraps single-operand nodes.
func (s Set) Normalize() Set {
	if s.Kind == KindKey {
		return s
	}
	var out []Set
	for i, c := range s.Sets {
		c = c.Normalize()
		switch {
		case c.Kind == s.Kind && s.Kind != KindDiff:
			out = append(out, c.Sets...)
		case c.Kind == KindDiff && s.Kind == KindDiff && i == 0:
			out = append(out, c.Sets...)
		default:
			out = append(out, c)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return Set{Kind: s.Kind, Sets: out}
}

// Program is a compiled command sequence.
type Program struct {
	Ops    [][][]byte
	Result int
}

func (p Program) String() string {
	var buf strings.Builder
	for i, op := range p.Ops {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if i == p.Result {
			buf.WriteString("=> ")
		}
		for j, tok := range op {
			if j > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(tok)
		}
	}
	return buf.String()
}

// Solver compiles expressions. The zero value is ready to use.
type Solver struct {
	// TempPrefix prefixes temporary keys; "stal:" by default.
	TempPrefix string
	// NewID returns a unique token per compiled program; a random UUID by default.
	NewID func() string
}

type compiler struct {
	prefix string
	ops    [][][]byte
	temps  [][]byte
}

func (s Solver) begin() *compiler {
	prefix := s.TempPrefix
	if prefix == "" {
		prefix = "stal:"
	}
	var id string
	if s.NewID != nil {
		id = s.NewID()
	} else {
		id = uuid.NewString()
	}
	return &compiler{
		prefix: prefix + id + ":",
		ops:    [][][]byte{{[]byte("MULTI")}},
	}
}

// Solve compiles set into a program whose result is the member list.
func (s Solver) Solve(set Set) Program {
	c := s.begin()
	set = set.Normalize()
	if set.Kind == KindKey {
		c.emit([]byte("SMEMBERS"), set.Key)
	} else {
		keys := c.operands(set)
		c.emit(append([][]byte{commandName(set.Kind, false)}, keys...)...)
	}
	return c.finish()
}

// SolveTemplate compiles set to a single key and substitutes it at position
// pos of template, e.g. SORT <set> BY pattern. The template command is the
// result.
func (s Solver) SolveTemplate(template [][]byte, pos int, set Set) Program {
	c := s.begin()
	key := c.compile(set.Normalize())
	cmd := make([][]byte, len(template))
	copy(cmd, template)
	cmd[pos] = key
	c.emit(cmd...)
	return c.finish()
}

func (c *compiler) emit(op ...[]byte) {
	c.ops = append(c.ops, op)
}

func (c *compiler) finish() Program {
	result := len(c.ops) - 1
	if len(c.temps) > 0 {
		c.emit(append([][]byte{[]byte("DEL")}, c.temps...)...)
	}
	c.emit([]byte("EXEC"))
	return Program{Ops: c.ops, Result: result}
}

// compile returns the key holding the members of set, storing intermediate
// results as needed.
func (c *compiler) compile(set Set) []byte {
	if set.Kind == KindKey {
		return set.Key
	}
	keys := c.operands(set)
	tmp := []byte(c.prefix + strconv.Itoa(len(c.temps)+1))
	c.temps = append(c.temps, tmp)
	c.emit(append([][]byte{commandName(set.Kind, true), tmp}, keys...)...)
	return tmp
}

func (c *compiler) operands(set Set) [][]byte {
	keys := make([][]byte, 0, len(set.Sets))
	for _, child := range set.Sets {
		keys = append(keys, c.compile(child))
	}
	return keys
}

func commandName(kind Kind, store bool) []byte {
	var name string
	switch kind {
	case KindUnion:
		name = "SUNION"
	case KindInter:
		name = "SINTER"
	case KindDiff:
		name = "SDIFF"
	default:
		panic("setalg: no command for " + kind.String())
	}
	if store {
		name += "STORE"
	}
	return []byte(name)
}
