package kv

import (
	"os"

	"github.com/ValentinKolb/trol/cmd/util"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	client *redis.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Inspect and modify raw keys",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(ttlCmd)
	KeyValueCommands.AddCommand(typeCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(showCmd)
	KeyValueCommands.AddCommand(perfTestCmd)

	setCmd.Flags().Float64("ttl", 0, util.WrapString("Expire the key after this many seconds (0 for no expiry)"))
	keysCmd.Flags().Int64("count", 100, util.WrapString("SCAN batch size hint"))
}

// setupKVClient opens the backend client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	var err error
	client, err = util.Connect(cmd)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	util.DumpMetrics(os.Stdout)
	if client == nil {
		return nil
	}
	return client.Close()
}
