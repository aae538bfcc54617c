package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/visitor"
)

// countValuesCmd is grounded on tools/carbon/ops/ops-count-values.c: a
// visitor run tallying how many times each key name occurs across the
// document, printed as "<key> <count>" pairs sorted by key.
var countValuesCmd = &cobra.Command{
	Use:   "count-values <source-key>",
	Short: "Print per-key occurrence counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := context.Background()
		p, err := loadPipeline(ctx, args[0], nil)
		if err != nil {
			return err
		}

		counts := map[string]int{}
		bump := func(k string) { counts[k]++ }

		cb := visitor.Callbacks{
			PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
				for _, k := range keys {
					bump(k)
				}
			},
			ArrayEntry: func(path string, t fieldtype.Type, key string, index int, values []any) {
				bump(key)
			},
			BeforeVisitObjectArray: func(path, key string) visitor.Result {
				bump(key)
				return visitor.Continue
			},
			VisitObjectArrayProp: func(path, columnName string, t fieldtype.Type, groupObjectIndex int, values []any) {
				bump(columnName)
			},
		}
		d := visitor.New(p.Archive, p.Dict, cb, visitMask())
		if err := d.Walk(); err != nil {
			return fmt.Errorf("walking archive: %w", err)
		}

		names := make([]string, 0, len(counts))
		for k := range counts {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("%s %d\n", n, counts[n])
		}
		return nil
	},
}
