package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

// app carries the configuration shared by all commands of one root.
type app struct {
	conf *viper.Viper
}

func newRootCommand() *cobra.Command {
	a := &app{conf: newConfig()}

	cmd := &cobra.Command{
		Use:   "ohm",
		Short: "Inspect ohm records and indices",
		Long: fmt.Sprintf(`ohm (v%s)

Reads the keys that the ohm object-hash mapper maintains: record hashes,
unique maps, index sets, relation containers and counters.`, version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.conf.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			format := a.conf.GetString("format")
			if format != "yaml" && format != "text" {
				return fmt.Errorf("invalid format %q: must be yaml or text", format)
			}
			return nil
		},
	}
	setupStoreFlags(cmd)

	cmd.AddCommand(
		newVersionCommand(),
		newKeysCommand(a),
		newDumpCommand(a),
		newStatsCommand(a),
		newGetCommand(a),
		newMembersCommand(a),
		newFindCommand(a),
		newWithCommand(a),
		newCountCommand(a),
		newSortCommand(a),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ohm v%s\n", version)
			return err
		},
	}
}

// withStore opens the configured store for the duration of f.
func (a *app) withStore(cmd *cobra.Command, f func(s inspectable) error) error {
	s, err := openStore(cmd.Context(), a.conf)
	if err != nil {
		return err
	}
	defer s.Close()
	return f(s)
}

// print writes v as a YAML document, or as plain lines in text format.
func (a *app) print(w io.Writer, v any) error {
	if a.conf.GetString("format") == "text" {
		switch v := v.(type) {
		case []string:
			for _, s := range v {
				if _, err := fmt.Fprintln(w, s); err != nil {
					return err
				}
			}
			return nil
		case string:
			_, err := fmt.Fprintln(w, v)
			return err
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
