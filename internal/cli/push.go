package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/client"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	File string
	Zstd bool
}

// PushResult is the data payload of a successful push.
type PushResult struct {
	Name      string `json:"name"`
	BlockType string `json:"block_type"`
	Bytes     int    `json:"bytes"`
	Stored    bool   `json:"stored"`
}

func (r PushResult) String() string {
	return fmt.Sprintf("stored %s (%s, %d bytes)", r.Name, r.BlockType, r.Bytes)
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push <name> <block-type> [content]",
		Short: "Submit a block to the server",
		Long: `Submit a block to the server.

The checksum is computed locally. Content comes from the third argument,
from --file, or from stdin when neither is given. Content must be UTF-8 text.

Exit codes:
  0 - Block stored
  1 - Server rejected the block
  2 - Command error (bad arguments, unreadable input, unreachable server)

Examples:
  dataserver push Test BLOCKTYPEA hello
  dataserver push report BLOCKTYPEB --file report.txt --zstd
  echo hello | dataserver push Test BLOCKTYPEA`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read content from file")
	cmd.Flags().BoolVar(&opts.Zstd, "zstd", false, "compress the request body with zstd")

	return cmd
}

func runPush(opts *PushOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	blockType, err := block.ParseBlockType(args[1])
	if err != nil {
		_ = f.Error(CodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid block type", err)
	}

	content, err := pushContent(opts, args, cmd.InOrStdin())
	if err != nil {
		_ = f.Error(CodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read content", err)
	}

	f.VerboseLog("pushing %q (%s, %d bytes) to %s", args[0], blockType, len(content), opts.Server)
	c := client.New(opts.Server, client.WithZstd(opts.Zstd))
	ok, err := c.Push(cmd.Context(), args[0], blockType, content)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return exitForBlockError("push failed", err)
	}

	return f.Success(PushResult{
		Name:      args[0],
		BlockType: string(blockType),
		Bytes:     len(content),
		Stored:    ok,
	})
}

// pushContent picks the content source: argument, --file, then stdin.
func pushContent(opts *PushOptions, args []string, stdin io.Reader) (string, error) {
	if len(args) == 3 {
		if opts.File != "" {
			return "", fmt.Errorf("content argument and --file are mutually exclusive")
		}
		return args[2], nil
	}
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
