package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/trol/cmd/kv"
	"github.com/ValentinKolb/trol/cmd/lock"
	"github.com/ValentinKolb/trol/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "trol",
		Short: "object mapping for key-value stores",
		Long: fmt.Sprintf(`trol (v%s)

Maps typed properties, collections and entities onto the keys of a
Redis-compatible key-value server. This tool inspects raw keys, manages
locks and measures the performance of the mapping layer.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of trol",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trol v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
