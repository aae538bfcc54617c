package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/visitor"
)

// showKeysCmd is grounded on tools/carbon/ops/ops-show-keys.c: a visitor run
// whose only job is to print every distinct decoded key name it observes.
var showKeysCmd = &cobra.Command{
	Use:   "show-keys <source-key>",
	Short: "Print every distinct property key name in a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx := context.Background()
		p, err := loadPipeline(ctx, args[0], nil)
		if err != nil {
			return err
		}

		seen := map[string]struct{}{}
		cb := visitor.Callbacks{
			VisitObjectProperty: func(path, key string) { seen[key] = struct{}{} },
			PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
				for _, k := range keys {
					seen[k] = struct{}{}
				}
			},
			ArrayEntry: func(path string, t fieldtype.Type, key string, index int, values []any) {
				seen[key] = struct{}{}
			},
			BeforeVisitObjectArray: func(path, key string) visitor.Result {
				seen[key] = struct{}{}
				return visitor.Continue
			},
			BeforeVisitObjectArrayObjectProperty: func(path, columnName string, t fieldtype.Type) visitor.Result {
				seen[columnName] = struct{}{}
				return visitor.Continue
			},
		}
		d := visitor.New(p.Archive, p.Dict, cb, visitMask())
		if err := d.Walk(); err != nil {
			return fmt.Errorf("walking archive: %w", err)
		}

		names := make([]string, 0, len(seen))
		for k := range seen {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}
