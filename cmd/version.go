package cmd

import (
	"github.com/brk3/routines/internal/apiclient"
	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/pkg/versioninfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `The "version" command displays the current version info for both client
and server if available.`,
	Run: func(cmd *cobra.Command, args []string) {
		version(cmd)
	},
}

func version(cmd *cobra.Command) {
	cmd.Printf("Client Version: %s\n", versioninfo.Version)

	cfg, err := config.Load()
	if err != nil {
		cmd.Println("Error loading config file:", err)
		return
	}
	serverVersion, err := newClient(cfg).Version(cmd.Context())
	if err != nil {
		cmd.Println("Error fetching server version:", err)
		return
	}
	cmd.Printf("Server Version: %s\n", serverVersion.Version)
}

func newClient(cfg *config.Config) *apiclient.Client {
	c := apiclient.New(cfg.APIBaseURL)
	c.Token = cfg.AuthToken
	return c
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
