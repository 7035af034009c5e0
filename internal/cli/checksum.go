package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dataserver/internal/checksum"
)

// NewChecksumCommand creates the checksum command.
func NewChecksumCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum [file]",
		Short: "Print the checksum the server expects for some content",
		Long: `Print the checksum of a file, or of stdin when no file is given.

This is the value to put in an envelope's checksum field.

Example:
  dataserver checksum report.txt
  printf hello | dataserver checksum`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecksum(rootOpts, args, cmd)
		},
	}
}

func runChecksum(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		_ = f.Error(CodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	sum, err := checksum.Digest(data)
	if err != nil {
		_ = f.Error(CodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to compute checksum", err)
	}
	return f.Success(sum)
}
