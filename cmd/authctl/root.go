package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Manage an authenticated session against an auth authority",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rt.bindFlags(root)

	root.AddCommand(
		NewLoginCommand(rt).Command(),
		NewRegisterCommand(rt).Command(),
		NewLogoutCommand(rt).Command(),
		NewWhoAmICommand(rt).Command(),
		NewStatusCommand(rt).Command(),
		NewGetCommand(rt).Command(),
		NewMetricsCommand(rt).Command(),
		NewConfigCommand(rt).Command(),
	)
	return root
}
