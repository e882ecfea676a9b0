package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/simulate"
	"github.com/okian/artemis/pkg/logger"
)

const defaultURL = "http://localhost:9080"

type rootFlags struct {
	url     string
	timeout time.Duration
}

// newRootCmd creates the top-level "artemisctl" command. styled reports
// whether output may carry terminal styling.
func newRootCmd(styled func() bool) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "artemisctl",
		Short:         "Operate and inspect an Artemis profile server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	baseURL := os.Getenv("ARTEMIS_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}
	root.PersistentFlags().StringVar(&flags.url, "url", baseURL, "base URL of the server (env ARTEMIS_URL)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "HTTP request timeout")

	root.AddCommand(
		newSimulateCmd(flags),
		newProfileCmd(flags, styled),
		newSkillsCmd(flags, styled),
		newClassifyCmd(),
	)
	return root
}

func newSimulateCmd(flags *rootFlags) *cobra.Command {
	cfg := simulate.Config{}
	var verbose bool
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit generated game sessions and verify the resulting profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			cfg.BaseURL = flags.url
			cfg.Timeout = flags.timeout
			cfg.Verbose = verbose
			stats, err := simulate.Run(cmd.Context(), cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted %d, accepted %d, duplicate %d, failed %d, mismatched %d in %s\n",
					stats.Submitted, stats.Accepted, stats.Duplicate, stats.Failed, stats.Mismatched, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Users, "users", 10, "number of simulated users")
	f.IntVar(&cfg.SessionsPerUser, "sessions", 20, "sessions per user")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.DurationVar(&cfg.Settle, "settle", 30*time.Second, "how long to wait for ingestion before verifying")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated submissions to this JSON file")
	f.Uint64Var(&cfg.Seed, "seed", 0, "score generator seed (0 = random)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log failed requests and polling")
	return cmd
}

func newProfileCmd(flags *rootFlags, styled func() bool) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "profile <user-id>",
		Short: "Show a user's thinking profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := simulate.NewClient(flags.url, flags.timeout)
			p, err := client.Profile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching profile: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderProfile(args[0], p, iq.ClassifyIQ(p.OverallIQ), newTheme(styled())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw profile as JSON")
	return cmd
}

func newSkillsCmd(flags *rootFlags, styled func() bool) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List the server's weighted skill catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			skills, err := simulate.NewClient(flags.url, flags.timeout).Skills(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching skills: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSkills(skills, newTheme(styled())))
			return nil
		},
	}
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <iq>",
		Short: "Print the thinker band for an IQ value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid iq %q: %w", args[0], err)
			}
			c := iq.ClassifyIQ(v)
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n%s\n", c.IQ, c.Label, c.Description)
			return nil
		},
	}
}
