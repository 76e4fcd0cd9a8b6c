package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/anirudhraja/protoraw"
	"github.com/anirudhraja/protoraw/typed"
	"github.com/anirudhraja/protoraw/wire"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "decode protobuf wire data from a file or stdin",
		Long: `Decode protobuf wire data. Without --type the fields are printed raw,
like protoc --decode_raw. With --type the data is interpreted against the
schema loaded from --schema or the proto paths and printed as JSON.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			isHex, _ := cmd.Flags().GetBool("hex")
			schemaPath, _ := cmd.Flags().GetString("schema")
			messageType, _ := cmd.Flags().GetString("type")
			jsonNames, _ := cmd.Flags().GetBool("json-names")
			enumNumbers, _ := cmd.Flags().GetBool("enum-numbers")

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if isHex {
				if data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), "")); err != nil {
					return fmt.Errorf("invalid hex input: %w", err)
				}
			}
			klog.V(2).Infof("decoding %d bytes", len(data))

			p := protoraw.New(s.ProtoDirs)
			p.SetConfig(s.Wire)
			p.SetOptions(typed.Options{UseJSONNames: jsonNames, EnumsAsNumbers: enumNumbers})

			if messageType == "" {
				fields, err := p.Decode(data)
				if err != nil {
					return fmt.Errorf("failed to decode: %w", err)
				}
				if s.Format == formatJSON {
					return writeJSON(cmd, toJSONFields(fields))
				}
				fmt.Fprint(cmd.OutOrStdout(), wire.FormatWithConfig(fields, s.Wire))
				return nil
			}

			if err := loadSchemas(p, schemaPath, s.ProtoDirs); err != nil {
				return err
			}
			result, err := p.Parse(data, messageType)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", messageType, err)
			}
			return writeJSON(cmd, result)
		},
	}

	decodeCmd.Flags().String("format", formatText, "raw output format: text or json")
	decodeCmd.Flags().Bool("hex", false, "input is hex text (whitespace ignored)")
	decodeCmd.Flags().String("schema", "", ".proto file or directory to load")
	decodeCmd.Flags().StringP("type", "t", "", "fully qualified message type, e.g. pkg.Msg")
	decodeCmd.Flags().Bool("json-names", false, "key typed output by json_name")
	decodeCmd.Flags().Bool("enum-numbers", false, "print enum values as numbers")
	return decodeCmd
}

// loadSchemas loads schemaPath, or every proto directory when it is empty.
func loadSchemas(p *protoraw.Protoraw, schemaPath string, protoDirs []string) error {
	if schemaPath != "" {
		if err := p.LoadSchema(schemaPath); err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		return nil
	}
	if len(protoDirs) == 0 {
		return fmt.Errorf("--type needs --schema or --proto-path")
	}
	for _, dir := range protoDirs {
		if err := p.LoadSchema(dir); err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	s, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(s))
	return nil
}
