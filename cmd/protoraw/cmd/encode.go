package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/anirudhraja/protoraw"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "encode a JSON field list, or a typed JSON object, to protobuf wire data",
		Long: `Encode reads a JSON array of {"number", "wire_type", "value"} objects
(nested "fields" for LEN submessages and SGROUP groups) and writes the wire
bytes. With --type the input is a JSON object interpreted against the schema.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			asHex, _ := cmd.Flags().GetBool("hex")
			schemaPath, _ := cmd.Flags().GetString("schema")
			messageType, _ := cmd.Flags().GetString("type")

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			p := protoraw.New(s.ProtoDirs)
			p.SetConfig(s.Wire)

			var data []byte
			if messageType == "" {
				var jf []jsonField
				if err := json.Unmarshal(input, &jf); err != nil {
					return fmt.Errorf("invalid field list: %w", err)
				}
				fields, err := fromJSONFields(jf)
				if err != nil {
					return err
				}
				if data, err = p.Encode(fields); err != nil {
					return fmt.Errorf("failed to encode: %w", err)
				}
			} else {
				if err := loadSchemas(p, schemaPath, s.ProtoDirs); err != nil {
					return err
				}
				dec := json.NewDecoder(bytes.NewReader(input))
				dec.UseNumber()
				var obj map[string]interface{}
				if err := dec.Decode(&obj); err != nil {
					return fmt.Errorf("invalid JSON object: %w", err)
				}
				if data, err = p.Marshal(obj, messageType); err != nil {
					return fmt.Errorf("failed to encode %s: %w", messageType, err)
				}
			}
			klog.V(2).Infof("encoded %d bytes", len(data))

			if asHex {
				data = []byte(hex.EncodeToString(data) + "\n")
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}

	encodeCmd.Flags().StringP("output", "o", "", "output file, stdout when empty")
	encodeCmd.Flags().Bool("hex", false, "write hex text instead of binary")
	encodeCmd.Flags().String("schema", "", ".proto file or directory to load")
	encodeCmd.Flags().StringP("type", "t", "", "fully qualified message type; input is then a JSON object")
	return encodeCmd
}
