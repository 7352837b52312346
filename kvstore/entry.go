package kvstore

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInt    = errors.New("ERR value is not an integer or out of range")
)

type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindHash
	KindSet
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindList:
		return "list"
	default:
		return "kind" + strconv.Itoa(int(k))
	}
}

// entry is the stored value of one key. Set members are kept sorted.
type entry struct {
	Kind    Kind              `msgpack:"k"`
	Str     string            `msgpack:"s,omitempty"`
	Hash    map[string]string `msgpack:"h,omitempty"`
	Members []string          `msgpack:"m,omitempty"`
}

func decodeEntry(key string, raw []byte) (*entry, error) {
	e := new(entry)
	err := msgpack.Unmarshal(raw, e)
	if err != nil {
		return nil, fmt.Errorf("kvstore: corrupted value of %q: %w", key, err)
	}
	return e, nil
}

func (e *entry) encode() ([]byte, error) {
	return msgpack.Marshal(e)
}

// empty containers do not exist, like in Redis
func (e *entry) empty() bool {
	switch e.Kind {
	case KindHash:
		return len(e.Hash) == 0
	case KindSet, KindList:
		return len(e.Members) == 0
	default:
		return false
	}
}

func (e *entry) setContains(member string) bool {
	_, found := slices.BinarySearch(e.Members, member)
	return found
}

func (e *entry) setAdd(member string) bool {
	i, found := slices.BinarySearch(e.Members, member)
	if found {
		return false
	}
	e.Members = slices.Insert(e.Members, i, member)
	return true
}

func (e *entry) setRemove(member string) bool {
	i, found := slices.BinarySearch(e.Members, member)
	if !found {
		return false
	}
	e.Members = slices.Delete(e.Members, i, i+1)
	return true
}

func (e *entry) integer() (int64, error) {
	v, err := strconv.ParseInt(e.Str, 10, 64)
	if err != nil {
		return 0, ErrNotInt
	}
	return v, nil
}

// listRange normalizes Redis-style inclusive start and stop positions,
// negative ones counting from the end.
func listRange(n int, start, stop int64) (int, int, bool) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if stop >= int64(n) {
		stop = int64(n) - 1
	}
	if start > stop || start >= int64(n) {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}
