package cli

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"peanalyze/internal/analyze"
)

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Print the JSON schema for the analysis Report",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&analyze.Report{}), "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
