package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/angeloszaimis/circuit-gate/config"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulesource"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the rules the configured source currently returns, as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return printRules(cmd.Context(), cmd, cfg)
		},
	}
	cmd.AddCommand(newRulesPushCmd())
	return cmd
}

func newRulesPushCmd() *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "push [rules file]",
		Short: "Validate a rules file and store it in the configured Redis key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return pushRules(cmd.Context(), cmd, cfg, args[0], host)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "store under the host-specific key")
	return cmd
}

func printRules(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	source, closeSource, err := newRuleSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	if cfg.Rules.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Rules.Timeout)
		defer cancel()
	}

	rules, err := source.ReadRules(ctx, hostname(cfg))
	if err != nil {
		return fmt.Errorf("read rules: %w", err)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string][]rule.Rule{"rules": rules})
}

func pushRules(ctx context.Context, cmd *cobra.Command, cfg *config.Config, path, host string) error {
	rules, err := rulesource.NewFile(path).ReadRules(ctx, host)
	if err != nil {
		return err
	}
	if err := rule.ValidateAll(rules); err != nil {
		return fmt.Errorf("invalid rules in %s: %w", path, err)
	}

	dest := rulesource.NewRedis(rulesource.RedisConfig{
		Addr:     cfg.Rules.Redis.Address,
		Password: cfg.Rules.Redis.Password,
		DB:       cfg.Rules.Redis.DB,
		Key:      cfg.Rules.Redis.Key,
	})
	defer dest.Close()

	if err := dest.WriteRules(ctx, host, rules); err != nil {
		return err
	}

	slog.Info("rules pushed", slog.Int("rules", len(rules)), slog.String("host", host))
	fmt.Fprintf(cmd.OutOrStdout(), "pushed %d rules\n", len(rules))
	return nil
}
