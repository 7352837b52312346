package main

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/andreyvit/ohm"
	"github.com/andreyvit/ohm/kvstore"
	"github.com/spf13/cobra"
)

func newKeysCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [prefix]",
		Short: "List keys, optionally only those starting with prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) > 0 {
				prefix = args[0]
			}
			return a.withStore(cmd, func(s inspectable) error {
				keys, err := s.Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), nonNil(keys))
			})
		},
	}
}

func newDumpCommand(a *app) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "dump [prefix]",
		Short: "Print every key with its type and value (kvstore files only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) > 0 {
				prefix = args[0]
			}
			return a.withStore(cmd, func(s inspectable) error {
				ks, ok := s.(*kvstore.Store)
				if !ok {
					return fmt.Errorf("dump is only supported for kvstore files")
				}
				flags := kvstore.DumpKeys | kvstore.DumpValues
				if stats {
					flags |= kvstore.DumpStats
				}
				out, err := ks.Dump(cmd.Context(), prefix, flags)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "Append key count and sizes")
	return cmd
}

type statsOutput struct {
	Keys      int            `yaml:"keys"`
	ValueSize int            `yaml:"value_size"`
	DBSize    int64          `yaml:"db_size"`
	Kinds     map[string]int `yaml:"kinds,omitempty"`
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [prefix]",
		Short: "Count keys by type (kvstore files only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) > 0 {
				prefix = args[0]
			}
			return a.withStore(cmd, func(s inspectable) error {
				ks, ok := s.(*kvstore.Store)
				if !ok {
					return fmt.Errorf("stats is only supported for kvstore files")
				}
				st, err := ks.Stats(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				out := statsOutput{Keys: st.Keys, ValueSize: st.ValueSize, DBSize: st.DBSize, Kinds: make(map[string]int)}
				for kind, n := range st.ByKind {
					out.Kinds[kind.String()] = n
				}
				return a.print(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Print the attributes of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("id must be a number: %w", err)
			}
			return a.withStore(cmd, func(s inspectable) error {
				ctx := cmd.Context()
				attrs, err := s.HGetAll(ctx, ohm.RecordKey(model, id))
				if err != nil {
					return err
				}
				if len(attrs) == 0 {
					found, err := s.SIsMember(ctx, ohm.AllKey(model), args[1])
					if err != nil {
						return err
					}
					if !found {
						return fmt.Errorf("%s/%d not found", model, id)
					}
				}
				if attrs == nil {
					attrs = make(map[string]string)
				}
				attrs["id"] = args[1]
				return a.print(cmd.OutOrStdout(), attrs)
			})
		},
	}
}

func newMembersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "members <key>",
		Short: "List the members of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s inspectable) error {
				members, err := s.SMembers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), sortMembers(members))
			})
		},
	}
}

func newFindCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <model> <field> <value>",
		Short: "List the ids of records whose indexed field equals value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s inspectable) error {
				members, err := s.SMembers(cmd.Context(), ohm.IndexKey(args[0], args[1], args[2]))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), sortMembers(members))
			})
		},
	}
}

func newWithCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "with <model> <field> <value>",
		Short: "Print the id of the record owning a unique value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s inspectable) error {
				id, found, err := s.HGet(cmd.Context(), ohm.UniqueKey(args[0], args[1]), args[2])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no %s with %s=%q", args[0], args[1], args[2])
				}
				return a.print(cmd.OutOrStdout(), id)
			})
		},
	}
}

func newCountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <model>",
		Short: "Print the number of live records of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s inspectable) error {
				n, err := s.SCard(cmd.Context(), ohm.AllKey(args[0]))
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), n)
			})
		},
	}
}

func newSortCommand(a *app) *cobra.Command {
	var (
		by      string
		counter bool
		desc    bool
		alpha   bool
		offset  int
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "sort <model>",
		Short: "List record ids in sorted order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			sortArgs := []string{ohm.AllKey(model)}
			if by != "" {
				if counter {
					sortArgs = append(sortArgs, "BY", model+":*:"+by)
				} else {
					sortArgs = append(sortArgs, "BY", model+":*->"+by)
				}
			}
			if limit > 0 {
				sortArgs = append(sortArgs, "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit))
			}
			if desc {
				sortArgs = append(sortArgs, "DESC")
			} else {
				sortArgs = append(sortArgs, "ASC")
			}
			if alpha {
				sortArgs = append(sortArgs, "ALPHA")
			}

			sortCmd := ohm.Command{Name: "SORT"}
			for _, arg := range sortArgs {
				sortCmd.Args = append(sortCmd.Args, []byte(arg))
			}
			return a.withStore(cmd, func(s inspectable) error {
				ids, err := s.Exec(cmd.Context(), []ohm.Command{sortCmd}, 0)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), nonNil(ids))
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", wrapString("Attribute to sort by; record ids when empty"))
	cmd.Flags().BoolVar(&counter, "counter", false, wrapString("Treat --by as a counter field"))
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort in descending order")
	cmd.Flags().BoolVar(&alpha, "alpha", false, "Compare values as strings")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of ids to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, wrapString("Maximum number of ids to print; all when 0"))
	return cmd
}

// sortMembers orders set members numerically when they all look like ids,
// lexically otherwise.
func sortMembers(members []string) []string {
	numeric := true
	for _, m := range members {
		if _, err := strconv.ParseUint(m, 10, 64); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		slices.SortFunc(members, func(a, b string) int {
			x, _ := strconv.ParseUint(a, 10, 64)
			y, _ := strconv.ParseUint(b, 10, 64)
			return cmp.Compare(x, y)
		})
	} else {
		slices.Sort(members)
	}
	return nonNil(members)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
