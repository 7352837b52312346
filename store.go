package ohm

import (
	"context"

	"github.com/andreyvit/ohm/setalg"
)

// Store is the key-value store the mapper runs on. Its primitives mirror
// Redis; kvstore and redisstore provide implementations.
//
// Methods report a missing key the way Redis does: empty map, zero count,
// found == false.
type Store interface {
	HGet(ctx context.Context, key, field string) (value string, found bool, err error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)

	SAdd(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) (bool, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	LPush(ctx context.Context, key, member string) (int64, error)
	RPush(ctx context.Context, key, member string) (int64, error)
	LPop(ctx context.Context, key string) (string, bool, error)
	RPop(ctx context.Context, key string) (string, bool, error)
	LIndex(ctx context.Context, key string, index int64) (string, bool, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LRem(ctx context.Context, key, member string) (int64, error)
	LLen(ctx context.Context, key string) (int64, error)

	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	GetInt(ctx context.Context, key string) (int64, bool, error)

	// Eval runs a server-side script as one atomic unit of work. Payloads
	// are msgpack documents described in script.go. A uniqueness collision
	// is reported either as *UniqueIndexViolationError or as an error whose
	// text contains "UniqueIndexViolation: <field>".
	Eval(ctx context.Context, script Script, payloads ...[]byte) (int64, error)

	// Exec runs cmds as one atomic batch and returns the result of cmds[keep]
	// as a list of strings. The results of all other commands are discarded.
	Exec(ctx context.Context, cmds []Command, keep int) ([]string, error)

	Close() error
}

// Script names a server-side atomic script.
type Script string

const (
	ScriptSave   Script = "save"
	ScriptDelete Script = "delete"
)

// Command is one command of an Exec batch.
type Command struct {
	Name string
	Args [][]byte
}

func (c Command) String() string {
	buf := []byte(c.Name)
	for _, a := range c.Args {
		buf = append(buf, ' ')
		buf = append(buf, a...)
	}
	return string(buf)
}

// Solver compiles a set expression into a command program. setalg.Solver is
// the default.
type Solver interface {
	Solve(set setalg.Set) setalg.Program
	SolveTemplate(template [][]byte, pos int, set setalg.Set) setalg.Program
}
