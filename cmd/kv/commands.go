package kv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			ttl, _ := cmd.Flags().GetFloat64("ttl")
			if err := client.Set(cmd.Context(), key, value, backend.TTL(ttl)).Err(); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the string value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, err := client.Get(cmd.Context(), key).Result()
			if backend.IsNil(err) {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, resp=%s\n", key, quote(resp))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := client.Del(cmd.Context(), args...).Result()
			if err != nil {
				return err
			}
			fmt.Printf("deleted=%d\n", n)
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Prints the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ttl, err := client.PTTL(cmd.Context(), key).Result()
			if err != nil {
				return err
			}
			switch {
			case ttl == -2:
				fmt.Printf("key=%s, found=false\n", key)
			case ttl < 0:
				fmt.Printf("key=%s, ttl=none\n", key)
			default:
				fmt.Printf("key=%s, ttl=%s\n", key, ttl)
			}
			return nil
		},
	}
	typeCmd = &cobra.Command{
		Use:   "type [key]",
		Short: "Prints the data type stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client.Type(cmd.Context(), args[0]).Result()
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, type=%s\n", args[0], t)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "Lists keys matching a glob pattern (e.g. 'User:42:*')",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			count, _ := cmd.Flags().GetInt64("count")

			var keys []string
			iter := client.Scan(cmd.Context(), 0, pattern, count).Iterator()
			for iter.Next(cmd.Context()) {
				keys = append(keys, iter.Val())
			}
			if err := iter.Err(); err != nil {
				return err
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
	showCmd = &cobra.Command{
		Use:   "show [key]",
		Short: "Prints the content of a key whatever its data type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]
			t, err := client.Type(ctx, key).Result()
			if err != nil {
				return err
			}

			switch t {
			case "none":
				fmt.Printf("key=%s, found=false\n", key)
			case "string":
				v, err := client.Get(ctx, key).Result()
				if err != nil {
					return err
				}
				fmt.Println(quote(v))
			case "list":
				vs, err := client.LRange(ctx, key, 0, -1).Result()
				if err != nil {
					return err
				}
				for i, v := range vs {
					fmt.Printf("%d) %s\n", i, quote(v))
				}
			case "set":
				vs, err := client.SMembers(ctx, key).Result()
				if err != nil {
					return err
				}
				sort.Strings(vs)
				for _, v := range vs {
					fmt.Println(quote(v))
				}
			case "zset":
				vs, err := client.ZRangeWithScores(ctx, key, 0, -1).Result()
				if err != nil {
					return err
				}
				for _, z := range vs {
					fmt.Printf("%g\t%s\n", z.Score, quote(fmt.Sprint(z.Member)))
				}
			case "hash":
				m, err := client.HGetAll(ctx, key).Result()
				if err != nil {
					return err
				}
				fields := make([]string, 0, len(m))
				for f := range m {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				for _, f := range fields {
					fmt.Printf("%s\t%s\n", quote(f), quote(m[f]))
				}
			default:
				return fmt.Errorf("unsupported type %s", t)
			}
			return nil
		},
	}
)

// quote escapes values that are not printable, e.g. entity references
func quote(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0xFFFD }) >= 0 {
		return fmt.Sprintf("%q", s)
	}
	return s
}
