package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/utcp/pkg/repository"
	"goa.design/utcp/pkg/utcptypes"
)

// TestSearch_StableTieBreakHoldsForAnyEqualScoreGroup checks spec invariant
// 6: for any number of equally-scored tools, Search returns them in their
// registration order, and a limit truncates that same order rather than
// reshuffling it.
func TestSearch_StableTieBreakHoldsForAnyEqualScoreGroup(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("equally scored tools keep registration order under any limit", prop.ForAll(
		func(n, limit int) bool {
			tools := make([]*utcptypes.Tool, n)
			want := make([]string, n)
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("demo.tool%d", i)
				tools[i] = &utcptypes.Tool{Name: name, Description: "convert currency values"}
				want[i] = name
			}
			repo := repository.NewInMemory()
			if err := repo.SaveManual(context.Background(), nil, &utcptypes.Manual{Name: "demo", Tools: tools}); err != nil {
				return false
			}

			st := NewTagAndDescriptionWordMatch()
			results, err := st.Search(context.Background(), repo, "convert currency values", limit, nil)
			if err != nil {
				return false
			}

			wantTrunc := want
			if limit > 0 && limit < len(want) {
				wantTrunc = want[:limit]
			}
			if len(results) != len(wantTrunc) {
				return false
			}
			for i, r := range results {
				if r.Name != wantTrunc[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 12),
		gen.IntRange(0, 12),
	))

	properties.Property("searching the same repository repeatedly yields byte-identical ordering", prop.ForAll(
		func(n int) bool {
			tools := make([]*utcptypes.Tool, n)
			for i := 0; i < n; i++ {
				tools[i] = &utcptypes.Tool{Name: fmt.Sprintf("demo.tool%d", i), Description: "convert currency values"}
			}
			repo := repository.NewInMemory()
			if err := repo.SaveManual(context.Background(), nil, &utcptypes.Manual{Name: "demo", Tools: tools}); err != nil {
				return false
			}
			st := NewTagAndDescriptionWordMatch()

			first, err := st.Search(context.Background(), repo, "convert currency values", 0, nil)
			if err != nil {
				return false
			}
			for attempt := 0; attempt < 3; attempt++ {
				again, err := st.Search(context.Background(), repo, "convert currency values", 0, nil)
				if err != nil || len(again) != len(first) {
					return false
				}
				for i := range first {
					if first[i].Name != again[i].Name {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(2, 10),
	))

	properties.TestingRun(t)
}
