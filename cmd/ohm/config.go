package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andreyvit/ohm"
	"github.com/andreyvit/ohm/kvstore"
	"github.com/andreyvit/ohm/redisstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// wrap is the number of characters to wrap the help text at
const wrap = 50

var errNoStore = errors.New("no store configured: pass --store or --redis, or set OHM_STORE or OHM_REDIS")

func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ohm")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func setupStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("store", "", wrapString("Path of a kvstore database file"))
	cmd.PersistentFlags().String("redis", "", wrapString("Redis URL, e.g. redis://localhost:6379/0; takes precedence over --store"))
	cmd.PersistentFlags().Duration("timeout", 0, wrapString("How long to wait for the kvstore file lock"))
	cmd.PersistentFlags().String("format", "yaml", wrapString("Output format (yaml, text)"))
}

// inspectable is what the commands need from a backend: the ohm primitives
// plus key listing.
type inspectable interface {
	ohm.Store
	Keys(ctx context.Context, prefix string) ([]string, error)
}

var (
	_ inspectable = (*kvstore.Store)(nil)
	_ inspectable = (*redisstore.Store)(nil)
)

func openStore(ctx context.Context, v *viper.Viper) (inspectable, error) {
	if url := v.GetString("redis"); url != "" {
		s, err := redisstore.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	path := v.GetString("store")
	if path == "" {
		return nil, errNoStore
	}
	s, err := kvstore.Open(path, kvstore.Options{Timeout: v.GetDuration("timeout")})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}
