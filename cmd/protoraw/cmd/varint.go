package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anirudhraja/protoraw/wire"
)

func newVarintCmd() *cobra.Command {
	varintCmd := &cobra.Command{
		Use:   "varint",
		Short: "encode or decode a single varint",
	}
	varintCmd.PersistentFlags().BoolP("zigzag", "z", false, "apply zigzag (sint64) mapping")

	varintCmd.AddCommand(&cobra.Command{
		Use:   "encode N",
		Short: "print the varint encoding of N as hex",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			zigzag, _ := cmd.Flags().GetBool("zigzag")

			var v uint64
			if zigzag {
				n, err := strconv.ParseInt(args[0], 0, 64)
				if err != nil {
					return fmt.Errorf("invalid integer %q: %w", args[0], err)
				}
				v = wire.EncodeZigZag64(n)
			} else {
				n, err := strconv.ParseUint(args[0], 0, 64)
				if err != nil {
					return fmt.Errorf("invalid unsigned integer %q: %w", args[0], err)
				}
				v = n
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(wire.EncodeVarint(v)))
			return nil
		},
	})

	varintCmd.AddCommand(&cobra.Command{
		Use:   "decode HEX",
		Short: "decode a hex varint and print its value",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			zigzag, _ := cmd.Flags().GetBool("zigzag")

			b, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex %q: %w", args[0], err)
			}
			v, n, err := wire.ConsumeVarint(b)
			if err != nil {
				return err
			}
			if n != len(b) {
				return fmt.Errorf("%d trailing bytes after varint", len(b)-n)
			}
			if zigzag {
				fmt.Fprintln(cmd.OutOrStdout(), wire.DecodeZigZag64(v))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	return varintCmd
}
