package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "webconsole",
	Short: "Evaluate code inside a running web application",
	Long: `webconsole mounts an authenticated console endpoint into an HTTP application.
A POST carrying "query" and "token" parameters is evaluated in a persistent
JavaScript session and answered with {"prompt": ..., "result": ...}; every
other request reaches the application untouched.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("webconsole {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default: discovered)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
