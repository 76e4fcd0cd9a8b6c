package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// newRootCmd assembles the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "protoraw",
		Short: "inspect and build protobuf wire data, with or without a .proto schema",

		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "TOML config file (max_depth, max_length, format, proto_dirs)")
	rootCmd.PersistentFlags().StringSliceP("proto-path", "I", nil, "directories searched for .proto files and their imports")
	rootCmd.PersistentFlags().Int("max-depth", 0, "maximum group/submessage nesting, 0 disables the check")
	rootCmd.PersistentFlags().Uint64("max-length", 0, "maximum length-delimited payload in bytes, 0 disables the check")

	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newEncodeCmd())
	rootCmd.AddCommand(newVarintCmd())
	return rootCmd
}

// Execute runs the command line. This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// readInput reads the named file, or stdin when args is empty or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
