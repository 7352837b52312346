// Command ohm inspects the records, indices and containers that ohm keeps in
// a kvstore file or on a Redis server.
//
//	ohm --store data.db count Dog
//	OHM_REDIS=redis://localhost:6379/0 ohm find Dog age 3
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cobra.OnInitialize(loadEnvFiles)
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
