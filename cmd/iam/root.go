package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/layer-3/barong-iam/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "iam",
	Short: "barong-iam - login, token and captcha service",
	Long: `barong-iam issues and rotates bearer tokens, gates logins with captcha
challenges and serves role and permission lookups.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $IAM_CONFIG)")
}

// loadConfig reads the file named by --config or IAM_CONFIG, if any
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("IAM_CONFIG")
	}
	return config.Load(path)
}
