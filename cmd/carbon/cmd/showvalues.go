package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/visitor"
)

// showValuesCmd is grounded on tools/carbon/ops/ops-show-values.c: a visitor
// run that prints the decoded scalar values observed under one key name,
// wherever in the document that key occurs.
var showValuesCmd = &cobra.Command{
	Use:   "show-values <source-key> <property>",
	Short: "Print decoded values stored under a given property name",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := context.Background()
		p, err := loadPipeline(ctx, args[0], nil)
		if err != nil {
			return err
		}
		target := args[1]

		print := func(v any) { fmt.Println(v) }

		cb := visitor.Callbacks{
			PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
				for i, k := range keys {
					if k == target {
						print(resolveScalar(p, t, values[i]))
					}
				}
			},
			ArrayEntry: func(path string, t fieldtype.Type, key string, index int, values []any) {
				if key == target {
					for _, v := range values {
						print(resolveScalar(p, t, v))
					}
				}
			},
			VisitObjectArrayProp: func(path, columnName string, t fieldtype.Type, groupObjectIndex int, values []any) {
				if columnName == target {
					for _, v := range values {
						print(resolveScalar(p, t, v))
					}
				}
			},
		}
		d := visitor.New(p.Archive, p.Dict, cb, visitMask())
		if err := d.Walk(); err != nil {
			return fmt.Errorf("walking archive: %w", err)
		}
		return nil
	},
}

// resolveScalar strips a string-id down to its decoded text so callers
// print human-readable output rather than raw ids.
func resolveScalar(p *pipeline, t fieldtype.Type, v any) any {
	if t == fieldtype.StringID {
		s, _ := p.Dict.Extract(v.(uint64))
		return s
	}
	return v
}
