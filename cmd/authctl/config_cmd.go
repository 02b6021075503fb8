package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	authclient "github.com/MrEthical07/goAuth-client"
	"github.com/MrEthical07/goAuth-client/config"
)

const redacted = "<redacted>"

type ConfigCommand struct {
	rt      *runtime
	showEnv bool
	strict  bool
}

func NewConfigCommand(rt *runtime) *ConfigCommand {
	return &ConfigCommand{rt: rt}
}

func (c *ConfigCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and lint warnings",
		Args:  cobra.NoArgs,
		RunE:  c.RunE,
	}
	cmd.Flags().BoolVar(&c.showEnv, "env", false, "list the environment variables instead")
	cmd.Flags().BoolVar(&c.strict, "strict", false, "fail on high severity lint warnings")
	return cmd
}

func (c *ConfigCommand) RunE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if c.showEnv {
		_, err := io.WriteString(out, config.Usage())
		return err
	}

	cfg, err := c.rt.loadConfig()
	if err != nil {
		return err
	}

	view := redactConfig(*cfg)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	lint := cfg.Lint()
	for _, w := range lint {
		fmt.Fprintf(cmd.ErrOrStderr(), "lint %-5s %s: %s\n", w.Severity, w.Code, w.Message)
	}
	if c.strict {
		return lint.AsError(authclient.LintHigh)
	}
	return nil
}

func redactConfig(cfg authclient.Config) authclient.Config {
	if cfg.Store.Key != "" {
		cfg.Store.Key = redacted
	}
	if cfg.Store.Passphrase != "" {
		cfg.Store.Passphrase = redacted
	}
	if cfg.Store.RedisPassword != "" {
		cfg.Store.RedisPassword = redacted
	}
	return cfg
}
