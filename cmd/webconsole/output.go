package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// printBanner shows where the console listens. The token is masked.
func printBanner(w io.Writer, addr, path, maskedToken string, extras []string) {
	lines := []string{
		titleStyle.Render("webconsole " + version),
		fmt.Sprintf("%s http://%s%s", dimStyle.Render("console:"), addr, path),
		fmt.Sprintf("%s %s", dimStyle.Render("token:  "), maskedToken),
	}
	lines = append(lines, extras...)
	fmt.Fprintln(w, bannerStyle.Render(strings.Join(lines, "\n")))
}

// printResult renders one evaluation the way the console would show it.
func printResult(w io.Writer, prompt, result string) {
	if prompt != "" {
		fmt.Fprintln(w, promptStyle.Render(prompt))
	}
	for _, line := range strings.SplitAfter(result, "\n") {
		if line == "" {
			continue
		}
		if strings.Contains(line, "Error:") {
			fmt.Fprint(w, errorStyle.Render(strings.TrimSuffix(line, "\n")), "\n")
			continue
		}
		fmt.Fprint(w, line)
	}
	if result != "" && !strings.HasSuffix(result, "\n") {
		fmt.Fprintln(w)
	}
}
