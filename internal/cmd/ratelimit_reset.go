package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rateLimitResetAll bool
	rateLimitResetYes bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset [client-key]",
	Short: "Delete rate limit windows for a client (or all clients)",
	Long: `Delete rate limit windows from the shared store.

Pass a client key (as shown by 'ratelimit list') to clear one client, or
--all --yes to clear every window. The affected clients start a fresh
window on their next request.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clientKey := ""
		if len(args) == 1 {
			clientKey = strings.TrimSpace(args[0])
		}

		switch {
		case rateLimitResetAll && clientKey != "":
			return errors.New("--all and a client key are mutually exclusive")
		case !rateLimitResetAll && clientKey == "":
			return errors.New("pass a client key or --all")
		case rateLimitResetAll && !rateLimitResetYes:
			return errors.New("--all requires --yes")
		}

		backend, closeBackend, err := openRateLimitBackend(cmd)
		if err != nil {
			return err
		}
		defer closeBackend()

		var removed int64
		if rateLimitResetAll {
			buckets, err := backend.ListBuckets(cmd.Context())
			if err != nil {
				return err
			}
			seen := make(map[string]struct{}, len(buckets))
			for _, b := range buckets {
				if _, done := seen[b.ClientKey]; done {
					continue
				}
				seen[b.ClientKey] = struct{}{}
				n, err := backend.ResetClient(cmd.Context(), b.ClientKey)
				if err != nil {
					return err
				}
				removed += n
			}
		} else {
			removed, err = backend.ResetClient(cmd.Context(), clientKey)
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d window(s)\n", removed)
		return nil
	},
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every client")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
}
