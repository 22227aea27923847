package main

import (
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

const repoSlug = "blackcoderx/reqtree"

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update reqtree to the latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if version == "dev" {
				a.printf("You are running a development version of reqtree. Update is not supported.\n")
				return nil
			}

			latest, found, err := selfupdate.DetectLatest(repoSlug)
			if err != nil {
				return fmt.Errorf("error occurred while detecting version: %w", err)
			}

			v, err := semver.ParseTolerant(version)
			if err != nil {
				return fmt.Errorf("error parsing current version '%s': %w", version, err)
			}

			if !found || latest.Version.LTE(v) {
				a.printf("Current version is the latest\n")
				return nil
			}

			ok, err := a.prompt.Confirm(fmt.Sprintf("Update to %s?", latest.Version), latest.ReleaseNotes)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("could not locate executable path: %w", err)
			}
			if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
				return fmt.Errorf("error occurred while updating binary: %w", err)
			}
			a.printf("Successfully updated to version %s\n", latest.Version)
			return nil
		},
	}
}
