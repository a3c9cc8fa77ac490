package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/categorytree/internal/cli"
	"github.com/pthm/categorytree/internal/update"
	"github.com/pthm/categorytree/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Info())
		if !versionCheck {
			return nil
		}
		info, err := update.CheckWithCache(cmd.Context())
		if err != nil {
			return cli.GeneralError("checking for updates", err)
		}
		fmt.Println(info)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
