package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loopboard/loopboard/internal/output"
)

var (
	rateLimitListOutput string
	rateLimitListClient string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live rate limit windows in the shared store",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitListOutput)
		if err != nil {
			return err
		}

		backend, closeBackend, err := openRateLimitBackend(cmd)
		if err != nil {
			return err
		}
		defer closeBackend()

		buckets, err := backend.ListBuckets(cmd.Context())
		if err != nil {
			return err
		}

		if client := strings.TrimSpace(rateLimitListClient); client != "" {
			filtered := buckets[:0]
			for _, b := range buckets {
				if b.ClientKey == client {
					filtered = append(filtered, b)
				}
			}
			buckets = filtered
		}

		rendered, err := output.FormatBuckets(format, buckets)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	rateLimitListCmd.Flags().StringVar(&rateLimitListClient, "client", "", "Show only buckets for one client key")
}
