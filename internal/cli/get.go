package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/client"
)

// RecordList is the data payload of get; text output is one line per record.
type RecordList []block.Record

func (l RecordList) String() string {
	if len(l) == 0 {
		return "No blocks found."
	}
	var b strings.Builder
	for i, rec := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d bytes",
			rec.ID, rec.Header.Name, rec.Header.BlockType,
			rec.Header.CreatedTimestamp.UTC().Format("2006-01-02T15:04:05Z07:00"), len(rec.Body.Content))
	}
	return b.String()
}

// NewGetCommand creates the get command and its type/name subcommands.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch stored blocks",
		Long: `Fetch stored blocks by type or by name.

Examples:
  dataserver get type BLOCKTYPEA
  dataserver get name Test --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "type <block-type>",
		Short:         "List every block of a type",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetByType(rootOpts, args[0], cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "name <name>",
		Short:         "Show the most recent block with a name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetByName(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runGetByType(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	blockType, err := block.ParseBlockType(arg)
	if err != nil {
		_ = f.Error(CodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid block type", err)
	}

	records, err := client.New(opts.Server).GetByType(cmd.Context(), blockType)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return exitForBlockError("get failed", err)
	}
	return f.Success(RecordList(records))
}

func runGetByName(opts *RootOptions, name string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	rec, err := client.New(opts.Server).GetByName(cmd.Context(), name)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return exitForBlockError("get failed", err)
	}
	if f.Format == "json" {
		return f.Success(rec)
	}
	return f.Success(RecordList{rec})
}
