package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exilence-cli/internal/core/release"
)

func newReleaseCommand(a *app) *cobra.Command {
	releaseCmd := &cobra.Command{
		Use:   "release",
		Short: "Release information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	releaseCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check the release feed for a newer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := release.NewChecker(Version, a.newClient())
			res, err := checker.Check(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s %s\n", subtitleStyle.Render("current:"), res.Current)
			fmt.Fprintf(a.stdout, "%s %s\n", subtitleStyle.Render("latest: "), res.Latest)
			if res.Newer {
				fmt.Fprintf(a.stdout, "%s %s\n", warningStyle.Render("A new version is available."), res.URL)
				return nil
			}
			fmt.Fprintln(a.stdout, successStyle.Render("Up to date."))
			return nil
		},
	})
	return releaseCmd
}
