// Package prompt asks the operator yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// IsYes reports whether answer is an affirmative reply. Anything other than "y" or "yes",
// ignoring case and surrounding whitespace, is a no.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// Confirm asks label on the terminal. When stdin is not a terminal the answer is read as a plain
// line, so piped input such as `echo y | wl-fixtures provision` still works.
func Confirm(label string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return ConfirmLine(os.Stdin, os.Stderr, label)
	}
	p := promptui.Prompt{
		Label: label + " (y/n)",
	}
	answer, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return IsYes(answer), nil
}

// ConfirmLine writes label to w and reads a single line answer from r. EOF is a no.
func ConfirmLine(r io.Reader, w io.Writer, label string) (bool, error) {
	if _, err := fmt.Fprintf(w, "%s (y/n): ", label); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return IsYes(line), nil
}

// Always returns a confirmation func that answers without asking.
func Always(answer bool) func(string) (bool, error) {
	return func(string) (bool, error) { return answer, nil }
}
