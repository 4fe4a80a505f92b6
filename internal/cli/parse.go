package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/malbeclabs/wlfixtures/internal/output"
	"github.com/spf13/cobra"
)

type ParseCmd struct{}

func NewParseCmd() *ParseCmd {
	return &ParseCmd{}
}

func (c *ParseCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract an identifier from tool output read from stdin or the arguments",
	}
	cmd.AddCommand(
		newExtractCmd("address", "Print the third token of the first line", output.Address),
		newExtractCmd("ticket", "Print the second token of the output", output.Ticket),
	)
	return cmd
}

func newExtractCmd(use, short string, extract func(string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [text]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			id, err := extract(text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}
