package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/config"
	"github.com/loopboard/loopboard/internal/output"
)

var policyListOutput string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect cache header strategies",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective cache header strategies",
	Long: `List the cache header strategies the server would run with, built-in
definitions merged with any cache.policy_file overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(policyListOutput)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		policy := cache.NewHeaderPolicy()
		if cfg.Cache.PolicyFile != "" {
			overrides, err := cache.LoadPolicyFile(cfg.Cache.PolicyFile)
			if err != nil {
				return err
			}
			policy.Merge(overrides)
		}

		names := policy.Names()
		strategies := make([]cache.Strategy, 0, len(names))
		for _, name := range names {
			strategies = append(strategies, policy.Strategy(name))
		}

		rendered, err := output.FormatStrategies(format, strategies)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	policyListCmd.Flags().StringVar(&policyListOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	policyCmd.AddCommand(policyListCmd)
	rootCmd.AddCommand(policyCmd)
}
