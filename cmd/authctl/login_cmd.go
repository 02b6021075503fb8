package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	authclient "github.com/MrEthical07/goAuth-client"
)

// credentialFlags is shared by login and register.
type credentialFlags struct {
	email         string
	password      string
	passwordStdin bool
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func (f *credentialFlags) credentials(in io.Reader) (authclient.Credentials, error) {
	password := f.password
	if f.passwordStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return authclient.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return authclient.Credentials{}, errors.New("password is required")
	}
	return authclient.Credentials{Email: f.email, Password: password}, nil
}

type LoginCommand struct {
	rt    *runtime
	creds credentialFlags
}

func NewLoginCommand(rt *runtime) *LoginCommand {
	return &LoginCommand{rt: rt}
}

func (c *LoginCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withClient(c.RunE),
	}
	c.creds.bind(cmd)
	return cmd
}

func (c *LoginCommand) RunE(cmd *cobra.Command, args []string) error {
	creds, err := c.creds.credentials(cmd.InOrStdin())
	if err != nil {
		return err
	}
	s, err := c.rt.client.Login(cmd.Context(), creds)
	if err != nil {
		return err
	}
	printSession(cmd.OutOrStdout(), s)
	return nil
}

type RegisterCommand struct {
	rt    *runtime
	creds credentialFlags
}

func NewRegisterCommand(rt *runtime) *RegisterCommand {
	return &RegisterCommand{rt: rt}
}

func (c *RegisterCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withClient(c.RunE),
	}
	c.creds.bind(cmd)
	return cmd
}

func (c *RegisterCommand) RunE(cmd *cobra.Command, args []string) error {
	creds, err := c.creds.credentials(cmd.InOrStdin())
	if err != nil {
		return err
	}
	s, err := c.rt.client.Register(cmd.Context(), creds)
	if err != nil {
		return err
	}
	printSession(cmd.OutOrStdout(), s)
	return nil
}

type LogoutCommand struct {
	rt *runtime
}

func NewLogoutCommand(rt *runtime) *LogoutCommand {
	return &LogoutCommand{rt: rt}
}

func (c *LogoutCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear stored tokens",
		Args:  cobra.NoArgs,
		RunE:  c.rt.withClient(c.RunE),
	}
}

func (c *LogoutCommand) RunE(cmd *cobra.Command, args []string) error {
	if err := c.rt.client.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}
