package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/webconsole/pkg/auth/ticket"
	"github.com/rhuss/webconsole/pkg/config"
)

var (
	ticketSubject string
	ticketTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the console token",
	Long: `Print the console token of the configured server. The token comes from
console.secret, or from console.token_file written by a running server.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tok, err := configuredToken()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Sign a short-lived ticket with the console token",
	Long: `Sign a ticket that authenticates as a bearer credential until it expires.
Tickets stop validating as soon as the server rotates its token.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tok, err := configuredToken()
		if err != nil {
			return err
		}
		svc := ticket.New(func() string { return tok })
		raw, expires, err := svc.Issue(ticketSubject, ticketTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), raw)
		fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("expires "+expires.Format(time.RFC3339)))
		return nil
	},
}

func init() {
	ticketCmd.Flags().StringVar(&ticketSubject, "subject", "cli", "Subject recorded for evaluations made with the ticket")
	ticketCmd.Flags().DurationVar(&ticketTTL, "ttl", ticket.DefaultTTL, "Ticket lifetime")
	tokenCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(tokenCmd)
}

func configuredToken() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.Console.Secret != "" {
		return cfg.Console.Secret, nil
	}
	if cfg.Console.TokenFile == "" {
		return "", errors.New("the token is generated per process: set console.secret or console.token_file")
	}
	return resolveToken("", cfg.Console.TokenFile)
}
