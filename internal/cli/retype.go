package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/client"
)

// RetypeResult is the data payload of a successful retype.
type RetypeResult struct {
	Name      string `json:"name"`
	BlockType string `json:"block_type"`
}

func (r RetypeResult) String() string {
	return fmt.Sprintf("retyped %s to %s", r.Name, r.BlockType)
}

// NewRetypeCommand creates the retype command.
func NewRetypeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retype <name> <new-block-type>",
		Short: "Re-ingest a block under a new type",
		Long: `Re-ingest the most recent block with a name under a new type.

The existing block is not modified. A copy with the new type is stored and
becomes the block returned by name lookups.

Exit codes:
  0 - Copy stored
  1 - No block with that name, or the copy was rejected
  2 - Command error

Example:
  dataserver retype Test BLOCKTYPEB`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetype(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runRetype(opts *RootOptions, name, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	newType, err := block.ParseBlockType(arg)
	if err != nil {
		_ = f.Error(CodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid block type", err)
	}

	if _, err := client.New(opts.Server).Retype(cmd.Context(), name, newType); err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return exitForBlockError("retype failed", err)
	}
	return f.Success(RetypeResult{Name: name, BlockType: string(newType)})
}
