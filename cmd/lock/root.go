package lock

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/trol/cmd/util"
	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/ValentinKolb/trol/lib/lockmgr"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	client         *redis.Client
	lockMgr        lockmgr.ILockManager
	acquireTimeout float64
	extendBy       float64

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Long:  "Acquire the lock stored under key (e.g. 'Sleepy:foo:sleepy_lock'). Prints the owner ID needed to release it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the one printed by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}

	// extendCmd represents the extend command
	extendCmd = &cobra.Command{
		Use:   "extend [key] [ownerID]",
		Short: "Extend the timeout of a previously acquired lock",
		Args:  cobra.ExactArgs(2),
		RunE:  runExtend,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(extendCmd)

	// Add connection flags to the lock command
	util.SetupClientFlags(LockCommands)

	// Add flags specific to acquire and extend
	acquireCmd.Flags().Float64Var(&acquireTimeout, "lock-timeout", 30, "Lock timeout in seconds (0 for no timeout)")
	extendCmd.Flags().Float64Var(&extendBy, "by", 30, "Seconds to add to the remaining timeout")
}

// setupLockClient initializes the lock manager
func setupLockClient(cmd *cobra.Command, _ []string) error {
	var err error
	client, err = util.Connect(cmd)
	if err != nil {
		return err
	}
	lockMgr = lockmgr.NewLockManager(client)
	return nil
}

func closeLockClient(_ *cobra.Command, _ []string) error {
	util.DumpMetrics(os.Stdout)
	if client == nil {
		return nil
	}
	return client.Close()
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Attempt to acquire the lock
	acquired, ownerID, err := lockMgr.AcquireLock(cmd.Context(), key, backend.TTL(acquireTimeout))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	fmt.Printf("acquired=true, ownerId=%s\n", ownerID)
	return nil
}

// runRelease handles the release lock command
func runRelease(cmd *cobra.Command, args []string) error {
	key := args[0]
	ownerID := args[1]

	// Attempt to release the lock
	released, err := lockMgr.ReleaseLock(cmd.Context(), key, ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

// runExtend handles the extend lock command
func runExtend(cmd *cobra.Command, args []string) error {
	key := args[0]
	ownerID := args[1]

	extended, err := lockMgr.ExtendLock(cmd.Context(), key, ownerID, backend.TTL(extendBy))
	if err != nil {
		return fmt.Errorf("failed to extend lock: %v", err)
	}

	fmt.Printf("extended=%v\n", extended)
	return nil
}
