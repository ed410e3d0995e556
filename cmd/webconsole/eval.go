package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/webconsole/pkg/auth/token"
)

var (
	evalURL       string
	evalToken     string
	evalTokenFile string
	evalTimeout   time.Duration
)

var evalCmd = &cobra.Command{
	Use:   "eval [code]",
	Short: "Evaluate code in a running console",
	Long: `Evaluate code in a running console. The code is taken from the arguments,
or read from standard input when no arguments are given or the only
argument is "-".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		tok, err := resolveToken(evalToken, evalTokenFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), evalTimeout)
		defer cancel()

		resp, err := evaluateRemote(ctx, http.DefaultClient, evalURL, tok, code)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), resp.Prompt, resp.Result)
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVarP(&evalURL, "url", "u", envOr("WEBCONSOLE_URL", "http://localhost:8080/console"), "Console URL")
	evalCmd.Flags().StringVarP(&evalToken, "token", "t", os.Getenv("WEBCONSOLE_TOKEN"), "Console token")
	evalCmd.Flags().StringVar(&evalTokenFile, "token-file", "", "Read the console token from this file")
	evalCmd.Flags().DurationVar(&evalTimeout, "timeout", 2*time.Minute, "Request timeout")
	rootCmd.AddCommand(evalCmd)
}

// consoleResponse is the console's answer to an evaluation.
type consoleResponse struct {
	Prompt string `json:"prompt"`
	Result string `json:"result"`
}

// evaluateRemote posts code to the console at consoleURL.
func evaluateRemote(ctx context.Context, client *http.Client, consoleURL, tok, code string) (*consoleResponse, error) {
	form := url.Values{"query": {code}, token.DefaultParam: {tok}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, consoleURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting console: %w", err)
	}
	defer resp.Body.Close()

	// Rejected requests reach the host application, which answers in
	// whatever format it likes.
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || mediaType != "application/json" {
		return nil, fmt.Errorf("console did not answer (status %d): check the URL and token", resp.StatusCode)
	}

	var out consoleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding console response: %w", err)
	}
	return &out, nil
}

func readCode(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("no code given")
	}
	return string(b), nil
}

// resolveToken prefers an explicit token over a token file.
func resolveToken(tok, file string) (string, error) {
	if tok != "" {
		return tok, nil
	}
	if file == "" {
		return "", errors.New("a token is required: use --token, --token-file or WEBCONSOLE_TOKEN")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	tok = strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", file)
	}
	return tok, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
