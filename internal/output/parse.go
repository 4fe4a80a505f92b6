// Package output extracts identifiers from the free-form text printed by the external tools.
//
// Only two shapes are supported. Address handles a first line of the form
// "<label> <label> <address> ...", as printed by `spl-token create-token`,
// `spl-token create-account` and the whitelist client's `init`. Ticket handles a single line
// "<label> <address>" as printed by the whitelist client's `register`.
package output

import (
	"fmt"
	"strconv"
	"strings"
)

const maxQuotedOutput = 512

// MalformedOutputError is returned when the text does not contain the expected token.
type MalformedOutputError struct {
	Shape string
	Want  int
	Got   int
	Raw   string
}

func (e *MalformedOutputError) Error() string {
	raw := e.Raw
	if len(raw) > maxQuotedOutput {
		raw = raw[:maxQuotedOutput] + "..."
	}
	return fmt.Sprintf("malformed %s output: want at least %d tokens, got %d: %q", e.Shape, e.Want, e.Got, raw)
}

// Address returns the third whitespace-delimited token of the first line.
func Address(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	first, _, _ := strings.Cut(trimmed, "\n")
	fields := strings.Fields(first)
	if len(fields) < 3 {
		return "", &MalformedOutputError{Shape: "address", Want: 3, Got: len(fields), Raw: text}
	}
	return fields[2], nil
}

// Ticket returns the second whitespace-delimited token of the whole text.
func Ticket(text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", &MalformedOutputError{Shape: "ticket", Want: 2, Got: len(fields), Raw: text}
	}
	return fields[1], nil
}

// SplitNumericSuffix splits an identifier such as "ticket_account_2022" into its base and the
// trailing number. ok is false when the identifier has no "_<digits>" suffix.
func SplitNumericSuffix(id string) (base string, n uint64, ok bool) {
	i := strings.LastIndexByte(id, '_')
	if i <= 0 || i == len(id)-1 {
		return id, 0, false
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return id, 0, false
	}
	return id[:i], n, true
}
