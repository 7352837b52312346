package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/andreyvit/ohm"
)

var ErrSortScore = errors.New("ERR One or more scores can't be converted into double")

// Exec interprets a command batch in one write transaction. Supported:
// SMEMBERS, SINTER, SUNION, SDIFF and their STORE forms, DEL and SORT.
func (s *Store) Exec(ctx context.Context, cmds []ohm.Command, keep int) (result []string, err error) {
	if keep < 0 || keep >= len(cmds) {
		return nil, fmt.Errorf("kvstore: result position %d out of %d commands", keep, len(cmds))
	}
	err = s.update(ctx, func(t *txn) error {
		for i, cmd := range cmds {
			if s.logger.Enabled(ctx, slog.LevelDebug) {
				s.logger.LogAttrs(ctx, slog.LevelDebug, "kvstore: exec", slog.Int("pos", i), slog.String("cmd", cmd.String()))
			}
			r, err := t.exec(cmd)
			if err != nil {
				return fmt.Errorf("%s: %w", cmd.Name, err)
			}
			if i == keep {
				result = r
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// exec runs one command. Integer replies are returned as one-element lists.
func (t *txn) exec(cmd ohm.Command) ([]string, error) {
	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		args[i] = string(a)
	}
	name := strings.ToUpper(cmd.Name)
	switch name {
	case "SMEMBERS":
		if len(args) != 1 {
			return nil, errArity
		}
		return t.smembers(args[0])
	case "SINTER", "SUNION", "SDIFF":
		if len(args) == 0 {
			return nil, errArity
		}
		return t.combine(name, args)
	case "SINTERSTORE", "SUNIONSTORE", "SDIFFSTORE":
		if len(args) < 2 {
			return nil, errArity
		}
		members, err := t.combine(strings.TrimSuffix(name, "STORE"), args[1:])
		if err != nil {
			return nil, err
		}
		err = t.put(args[0], &entry{Kind: KindSet, Members: members})
		if err != nil {
			return nil, err
		}
		return []string{strconv.Itoa(len(members))}, nil
	case "DEL":
		var n int
		for _, key := range args {
			deleted, err := t.del(key)
			if err != nil {
				return nil, err
			}
			if deleted {
				n++
			}
		}
		return []string{strconv.Itoa(n)}, nil
	case "SORT":
		return t.sort(args)
	default:
		return nil, fmt.Errorf("ERR unknown command %q", cmd.Name)
	}
}

var errArity = errors.New("ERR wrong number of arguments")

// combine evaluates SINTER, SUNION or SDIFF. The result is sorted.
func (t *txn) combine(op string, keys []string) ([]string, error) {
	sets := make([][]string, len(keys))
	for i, key := range keys {
		members, err := t.smembers(key)
		if err != nil {
			return nil, err
		}
		sets[i] = members
	}

	counts := make(map[string]int)
	for i, members := range sets {
		for _, m := range members {
			switch op {
			case "SINTER":
				if counts[m] == i {
					counts[m] = i + 1
				}
			case "SUNION":
				counts[m] = 1
			case "SDIFF":
				if i == 0 {
					counts[m] = 1
				} else {
					delete(counts, m)
				}
			}
		}
	}

	result := make([]string, 0, len(counts))
	for m, n := range counts {
		if op != "SINTER" || n == len(sets) {
			result = append(result, m)
		}
	}
	sort.Strings(result)
	return result, nil
}

type sortItem struct {
	member string
	weight string
	score  float64
	null   bool
}

// sort implements SORT key [BY pattern] [LIMIT offset count] [ASC|DESC] [ALPHA].
func (t *txn) sort(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errArity
	}
	key := args[0]
	var (
		by          string
		hasBy       bool
		desc, alpha bool
	)
	offset, count := 0, -1
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "BY":
			if i+1 >= len(args) {
				return nil, errArity
			}
			by, hasBy = args[i+1], true
			i++
		case "LIMIT":
			if i+2 >= len(args) {
				return nil, errArity
			}
			var err1, err2 error
			offset, err1 = strconv.Atoi(args[i+1])
			count, err2 = strconv.Atoi(args[i+2])
			if err1 != nil || err2 != nil {
				return nil, ErrNotInt
			}
			i += 2
		case "ASC":
			desc = false
		case "DESC":
			desc = true
		case "ALPHA":
			alpha = true
		default:
			return nil, fmt.Errorf("ERR syntax error near %q", args[i])
		}
	}

	e, err := t.get(key)
	if err != nil {
		return nil, err
	}
	var members []string
	if e != nil {
		if e.Kind != KindSet && e.Kind != KindList {
			return nil, ErrWrongType
		}
		members = e.Members
	}

	items := make([]sortItem, len(members))
	for i, m := range members {
		items[i] = sortItem{member: m, weight: m}
	}
	// a pattern without * means "don't sort"
	dontSort := hasBy && !strings.Contains(by, "*")
	if hasBy && !dontSort {
		keyPattern, field, _ := strings.Cut(by, "->")
		for i := range items {
			wkey := strings.Replace(keyPattern, "*", items[i].member, 1)
			w, found, err := t.str(wkey, field)
			if errors.Is(err, ErrWrongType) {
				found, err = false, nil
			}
			if err != nil {
				return nil, err
			}
			items[i].weight, items[i].null = w, !found
		}
	}
	if !dontSort {
		if !alpha {
			for i := range items {
				if items[i].null {
					continue
				}
				items[i].score, err = strconv.ParseFloat(items[i].weight, 64)
				if err != nil {
					return nil, ErrSortScore
				}
			}
		}
		sort.SliceStable(items, func(i, j int) bool {
			c := compareSortItems(&items[i], &items[j], alpha)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	start, end := sortLimit(len(items), offset, count)
	result := make([]string, 0, end-start)
	for _, it := range items[start:end] {
		result = append(result, it.member)
	}
	return result, nil
}

func compareSortItems(a, b *sortItem, alpha bool) int {
	var c int
	switch {
	case alpha:
		switch {
		case a.null && b.null:
			c = 0
		case a.null:
			c = -1
		case b.null:
			c = 1
		default:
			c = strings.Compare(a.weight, b.weight)
		}
	case a.score < b.score:
		c = -1
	case a.score > b.score:
		c = 1
	}
	if c == 0 {
		c = strings.Compare(a.member, b.member)
	}
	return c
}

func sortLimit(n, offset, count int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if count >= 0 && offset+count < n {
		end = offset + count
	}
	return offset, end
}
