package ohm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/andreyvit/ohm/setalg"
)

// run executes a solved program as one atomic batch. MULTI and EXEC markers
// are stripped; the store wraps the remaining commands itself.
func (db *DB) run(ctx context.Context, p setalg.Program) ([]string, error) {
	cmds, keep, err := commands(p)
	if err != nil {
		return nil, err
	}
	if db.verbose {
		for i, cmd := range cmds {
			db.logf("ohm: EXEC.%d%s %s", i, map[bool]string{false: "", true: " =>"}[i == keep], cmd)
		}
	}
	db.queries.Inc()
	result, err := db.store.Exec(ctx, cmds, keep)
	if err != nil {
		return nil, storeErrf("EXEC", "", err)
	}
	return result, nil
}

func commands(p setalg.Program) ([]Command, int, error) {
	keep := -1
	cmds := make([]Command, 0, len(p.Ops))
	for i, op := range p.Ops {
		if len(op) == 0 {
			continue
		}
		for _, tok := range op {
			if !utf8.Valid(tok) {
				return nil, 0, &CommandError{tok}
			}
		}
		name := strings.ToUpper(string(op[0]))
		if (i == 0 && name == "MULTI") || (i == len(p.Ops)-1 && name == "EXEC") {
			continue
		}
		if i == p.Result {
			keep = len(cmds)
		}
		cmds = append(cmds, Command{Name: name, Args: op[1:]})
	}
	if keep < 0 {
		return nil, 0, fmt.Errorf("ohm: result position %d does not name a command of %d", p.Result, len(p.Ops))
	}
	return cmds, keep, nil
}

func parseIDs(model string, members []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(members))
	for _, s := range members {
		id, err := parseID(s)
		if err != nil {
			return nil, decoderErrf(model, "", err, "member %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
