package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	authclient "github.com/MrEthical07/goAuth-client"
	"github.com/MrEthical07/goAuth-client/metrics/export/prometheus"
)

func printSession(w io.Writer, s authclient.Session) {
	fmt.Fprintf(w, "state: %s\n", s.Phase)
	if s.User != nil {
		fmt.Fprintf(w, "user:  %s (%s)\n", s.User.Email, s.User.ID)
	}
	if s.LastError != "" {
		fmt.Fprintf(w, "error: %s\n", s.LastError)
	}
}

type StatusCommand struct {
	rt *runtime
}

func NewStatusCommand(rt *runtime) *StatusCommand {
	return &StatusCommand{rt: rt}
}

func (c *StatusCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Restore the stored session and print its state",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withClient(c.RunE),
	}
}

// RunE reports the session even when restore fails so a network outage stays visible.
func (c *StatusCommand) RunE(cmd *cobra.Command, args []string) error {
	s, err := c.rt.client.Boot(cmd.Context())
	printSession(cmd.OutOrStdout(), s)
	return err
}

type WhoAmICommand struct {
	rt *runtime
}

func NewWhoAmICommand(rt *runtime) *WhoAmICommand {
	return &WhoAmICommand{rt: rt}
}

func (c *WhoAmICommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch the profile of the logged-in account",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withSession(c.RunE),
	}
}

func (c *WhoAmICommand) RunE(cmd *cobra.Command, args []string) error {
	p, err := c.rt.client.WhoAmI(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p.Attributes)
}

type GetCommand struct {
	rt      *runtime
	headers []string
}

func NewGetCommand(rt *runtime) *GetCommand {
	return &GetCommand{rt: rt}
}

func (c *GetCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET to a path under the base URL",
		Args:  cobra.ExactArgs(1),
		RunE:  c.rt.withSession(c.RunE),
	}
	cmd.Flags().StringArrayVarP(&c.headers, "header", "H", nil, "extra header as 'Name: value'")
	return cmd
}

func (c *GetCommand) RunE(cmd *cobra.Command, args []string) error {
	u, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	req := authclient.Request{Method: "GET", Path: u.Path, Query: u.Query()}
	for _, h := range c.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("header %q is not 'Name: value'", h)
		}
		if req.Header == nil {
			req.Header = make(map[string][]string)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := c.rt.client.Do(cmd.Context(), req)
	if resp != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", resp.StatusCode)
		_, _ = cmd.OutOrStdout().Write(resp.Body)
	}
	return err
}

type MetricsCommand struct {
	rt *runtime
}

func NewMetricsCommand(rt *runtime) *MetricsCommand {
	return &MetricsCommand{rt: rt}
}

func (c *MetricsCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Restore the session and print client metrics in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withClient(c.RunE),
	}
}

func (c *MetricsCommand) RunE(cmd *cobra.Command, args []string) error {
	if _, err := c.rt.client.Boot(cmd.Context()); err != nil {
		c.rt.logger.Sugar().Warnf("boot: %v", err)
	}
	_, err := io.WriteString(cmd.OutOrStdout(), prometheus.NewPrometheusExporter(c.rt.client).Render())
	return err
}
