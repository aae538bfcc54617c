package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/converter"
)

// convertCmd runs the full visitor-driven converter and re-serializes the
// decoded document collection as JSON, the CLI's "--format json" output
// path in the original program.
var convertCmd = &cobra.Command{
	Use:   "convert <source-key>",
	Short: "Decode a built archive back to JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := context.Background()
		p, err := loadPipeline(ctx, args[0], nil)
		if err != nil {
			return err
		}

		docs, err := converter.New(p.Dict).Decode(p.Archive)
		if err != nil {
			return fmt.Errorf("decoding archive: %w", err)
		}

		out, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling decoded document: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
