package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/adledger/internal/infrastructure/logger"
	"github.com/iho/adledger/internal/infrastructure/postgres"
)

// cliConfig is read from ~/.config/adledger/cli.toml. Flags win over the file.
type cliConfig struct {
	URL            string        `toml:"url"`
	Timeout        time.Duration `toml:"timeout"`
	Actor          string        `toml:"actor"`
	DatabaseURL    string        `toml:"database_url"`
	MigrationsPath string        `toml:"migrations_path"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		URL:            "http://localhost:8080",
		Timeout:        10 * time.Second,
		Actor:          "cli",
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: postgres.DefaultMigrationsPath,
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "adledger", "cli.toml")
}

// loadCLIConfig overlays the file at path on the defaults. A missing file is
// not an error.
func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	return cfg, nil
}

type cli struct {
	configPath string
	flags      cliConfig
	cfg        cliConfig
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "adledger-cli",
		Short:         "AdLedger CLI tool",
		Long:          `A command line interface for the AdLedger budget custody API.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolveConfig(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.configPath, "config", defaultConfigPath(), "Path to the CLI config file")
	pf.StringVar(&c.flags.URL, "url", "", "Base URL of the AdLedger API")
	pf.DurationVar(&c.flags.Timeout, "timeout", 0, "Request timeout")
	pf.StringVar(&c.flags.Actor, "actor", "", "Actor recorded in the audit trail")

	rootCmd.AddCommand(c.accountCmd(), c.campaignCmd(), c.ledgerCmd(), c.migrateCmd())

	return rootCmd
}

func (c *cli) resolveConfig(cmd *cobra.Command) error {
	cfg, err := loadCLIConfig(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = c.flags.URL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = c.flags.Timeout
	}
	if flags.Changed("actor") {
		cfg.Actor = c.flags.Actor
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = c.flags.DatabaseURL
	}
	if flags.Changed("migrations") {
		cfg.MigrationsPath = c.flags.MigrationsPath
	}

	cfg.URL = strings.TrimRight(cfg.URL, "/")
	c.cfg = cfg
	return nil
}

// Account commands

func (c *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Advertiser and publisher accounts",
	}

	getCmd := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show balances of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account struct {
				UserID        string  `json:"user_id"`
				Currency      string  `json:"currency"`
				Balance       string  `json:"balance"`
				BalanceOnHold string  `json:"balance_on_hold"`
				Available     string  `json:"available"`
				TotalSpent    string  `json:"total_spent"`
				ArchivedAt    *string `json:"archived_at"`
			}
			if _, err := c.getJSON(cmd.Context(), "/api/v1/accounts/"+url.PathEscape(args[0]), &account, http.StatusOK); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "User:\t%s\n", account.UserID)
			fmt.Fprintf(w, "Currency:\t%s\n", account.Currency)
			fmt.Fprintf(w, "Balance:\t%s\n", account.Balance)
			fmt.Fprintf(w, "On hold:\t%s\n", account.BalanceOnHold)
			fmt.Fprintf(w, "Available:\t%s\n", account.Available)
			fmt.Fprintf(w, "Total spent:\t%s\n", account.TotalSpent)
			if account.ArchivedAt != nil {
				fmt.Fprintf(w, "Archived:\t%s\n", *account.ArchivedAt)
			}
			return w.Flush()
		},
	}

	var limit int
	entriesCmd := &cobra.Command{
		Use:   "entries <user-id>",
		Short: "List journal entries of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var page struct {
				Entries []struct {
					ID         string `json:"id"`
					Kind       string `json:"kind"`
					Amount     string `json:"amount"`
					CampaignID string `json:"campaign_id"`
					CreatedAt  string `json:"created_at"`
				} `json:"entries"`
			}
			path := fmt.Sprintf("/api/v1/accounts/%s/entries?limit=%d", url.PathEscape(args[0]), limit)
			if _, err := c.getJSON(cmd.Context(), path, &page, http.StatusOK); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tAMOUNT\tCAMPAIGN\tCREATED")
			for _, e := range page.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Kind, e.Amount, truncate(e.CampaignID, 24), e.CreatedAt)
			}
			return w.Flush()
		},
	}
	entriesCmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")

	cmd.AddCommand(getCmd, entriesCmd)
	return cmd
}

// Campaign commands

func (c *cli) campaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Campaign budgets",
	}

	getCmd := &cobra.Command{
		Use:   "get <campaign-id>",
		Short: "Show the budget of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printJSON(cmd, "/api/v1/campaigns/"+url.PathEscape(args[0]))
		},
	}

	forecastCmd := &cobra.Command{
		Use:   "forecast <campaign-id>",
		Short: "Show the burn-rate forecast of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var forecast struct {
				CampaignID             string  `json:"campaign_id"`
				Remaining              string  `json:"remaining"`
				DailyBurnRate          string  `json:"daily_burn_rate"`
				EstimatedDaysRemaining *string `json:"estimated_days_remaining"`
				ProjectedExhaustion    *string `json:"projected_exhaustion"`
				ScheduleRisk           string  `json:"schedule_risk"`
				Confidence             string  `json:"confidence"`
			}
			path := "/api/v1/campaigns/" + url.PathEscape(args[0]) + "/forecast"
			if _, err := c.getJSON(cmd.Context(), path, &forecast, http.StatusOK); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Campaign:\t%s\n", forecast.CampaignID)
			fmt.Fprintf(w, "Remaining:\t%s\n", forecast.Remaining)
			fmt.Fprintf(w, "Daily burn:\t%s\n", forecast.DailyBurnRate)
			fmt.Fprintf(w, "Days left:\t%s\n", orDash(forecast.EstimatedDaysRemaining))
			fmt.Fprintf(w, "Exhaustion:\t%s\n", orDash(forecast.ProjectedExhaustion))
			fmt.Fprintf(w, "Schedule risk:\t%s\n", forecast.ScheduleRisk)
			fmt.Fprintf(w, "Confidence:\t%s\n", forecast.Confidence)
			return w.Flush()
		},
	}

	cmd.AddCommand(getCmd, forecastCmd)
	return cmd
}

// Ledger commands

type reconciliationResult struct {
	UserID            string `json:"user_id"`
	BalanceDifference string `json:"balance_difference"`
	HoldDifference    string `json:"hold_difference"`
	IsReconciled      bool   `json:"is_reconciled"`
}

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var userID string
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check cached balances against the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if userID != "" {
				var result reconciliationResult
				path := "/api/v1/accounts/" + url.PathEscape(userID) + "/reconciliation"
				if _, err := c.getJSON(cmd.Context(), path, &result, http.StatusOK); err != nil {
					return err
				}
				if !result.IsReconciled {
					fmt.Fprintf(out, "Account %s: MISMATCH (balance %s, hold %s)\n", result.UserID, result.BalanceDifference, result.HoldDifference)
					return errors.New("account does not reconcile")
				}
				fmt.Fprintf(out, "Account %s: OK\n", result.UserID)
				return nil
			}

			var report struct {
				TotalAccounts      int                     `json:"total_accounts"`
				ReconciledAccounts int                     `json:"reconciled_accounts"`
				Discrepancies      []*reconciliationResult `json:"discrepancies"`
				LedgerConsistent   bool                    `json:"ledger_consistent"`
				LedgerError        string                  `json:"ledger_error"`
			}
			status, err := c.getJSON(cmd.Context(), "/api/v1/ledger/reconciliation", &report, http.StatusOK, http.StatusConflict)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Accounts reconciled: %d/%d\n", report.ReconciledAccounts, report.TotalAccounts)
			if report.LedgerConsistent {
				fmt.Fprintln(out, "Journal: consistent")
			} else {
				fmt.Fprintf(out, "Journal: INCONSISTENT (%s)\n", report.LedgerError)
			}
			for _, d := range report.Discrepancies {
				fmt.Fprintf(out, "  %s: balance %s, hold %s\n", d.UserID, d.BalanceDifference, d.HoldDifference)
			}

			if status != http.StatusOK {
				return errors.New("reconciliation FAILED")
			}
			fmt.Fprintln(out, "Reconciliation PASSED")
			return nil
		},
	}
	reconcileCmd.Flags().StringVar(&userID, "user", "", "Reconcile a single account")

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printJSON(cmd, "/api/v1/ledger/audit")
		},
	}

	cmd.AddCommand(reconcileCmd, auditCmd)
	return cmd
}

// Migration commands

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.PersistentFlags().StringVar(&c.flags.DatabaseURL, "database-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&c.flags.MigrationsPath, "migrations", "", "Directory holding the migration files")

	run := func(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if c.cfg.DatabaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}
			return fn(cmd)
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command) error {
			return postgres.RunMigrations(c.cfg.DatabaseURL, c.cfg.MigrationsPath, c.logger(cmd))
		}),
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command) error {
			return postgres.RunMigrationsDown(c.cfg.DatabaseURL, c.cfg.MigrationsPath, c.logger(cmd))
		}),
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command) error {
			version, dirty, err := postgres.MigrationVersion(c.cfg.DatabaseURL, c.cfg.MigrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
			return nil
		}),
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}

func (c *cli) logger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
}

// HTTP helpers

// getJSON fetches path and decodes the body into out when the status is one
// of accept.
func (c *cli) getJSON(ctx context.Context, path string, out any, accept ...int) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Actor-ID", c.cfg.Actor)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	for _, status := range accept {
		if resp.StatusCode == status {
			if err := json.Unmarshal(body, out); err != nil {
				return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
			}
			return resp.StatusCode, nil
		}
	}

	var apiErr struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		if apiErr.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s (status %d, %s): %s", apiErr.Error, resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return resp.StatusCode, fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
	}

	return resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
}

func (c *cli) printJSON(cmd *cobra.Command, path string) error {
	var raw json.RawMessage
	if _, err := c.getJSON(cmd.Context(), path, &raw, http.StatusOK); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
