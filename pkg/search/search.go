// Package search implements the weighted lexical search strategy (spec
// §4.4): tools are scored against a free-text query by matches against
// their name, tags, and description, then sorted by descending score with
// a stable tie-break on insertion order. The scoring shape is modeled on
// the teacher's runtime/registry.SearchClient keyword-relevance path,
// adapted from registry-wide search to per-tool weighted term matching.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"goa.design/utcp/pkg/kindregistry"
	"goa.design/utcp/pkg/repository"
	"goa.design/utcp/pkg/utcptypes"
)

// KindTagAndDescriptionWordMatch is the default, and only built-in, search
// strategy kind.
const KindTagAndDescriptionWordMatch = "tag_and_description_word_match"

// Default scoring weights, overridable per Strategy instance.
const (
	DefaultTagWeight         = 3.0
	DefaultDescriptionWeight = 1.0
)

// Strategy is the contract every search-strategy kind must satisfy.
type Strategy interface {
	// Search ranks tools in repo against query, optionally limited to limit
	// results (0 = unlimited) and filtered to tools carrying at least one of
	// tagFilter (empty = no filter).
	Search(ctx context.Context, repo repository.Repository, query string, limit int, tagFilter []string) ([]*utcptypes.Tool, error)
}

// TagAndDescriptionWordMatch implements Strategy per spec §4.4.
type TagAndDescriptionWordMatch struct {
	TagWeight         float64
	DescriptionWeight float64
}

// NewTagAndDescriptionWordMatch constructs the default strategy with
// default weights.
func NewTagAndDescriptionWordMatch() *TagAndDescriptionWordMatch {
	return &TagAndDescriptionWordMatch{
		TagWeight:         DefaultTagWeight,
		DescriptionWeight: DefaultDescriptionWeight,
	}
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// Search implements Strategy.
func (st *TagAndDescriptionWordMatch) Search(ctx context.Context, repo repository.Repository, query string, limit int, tagFilter []string) ([]*utcptypes.Tool, error) {
	tools, err := repo.GetTools(ctx)
	if err != nil {
		return nil, err
	}
	if len(tagFilter) > 0 {
		tools = filterByTags(tools, tagFilter)
	}

	queryTokens := tokenize(query)
	queryLower := strings.ToLower(query)

	type scored struct {
		tool  *utcptypes.Tool
		score float64
		order int
	}
	results := make([]scored, 0, len(tools))
	for i, t := range tools {
		score := st.scoreTool(t, query, queryLower, queryTokens)
		if score > 0 {
			results = append(results, scored{tool: t, score: score, order: i})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]*utcptypes.Tool, len(results))
	for i, r := range results {
		out[i] = r.tool
	}
	return out, nil
}

func filterByTags(tools []*utcptypes.Tool, tagFilter []string) []*utcptypes.Tool {
	wanted := make(map[string]bool, len(tagFilter))
	for _, tag := range tagFilter {
		wanted[strings.ToLower(tag)] = true
	}
	out := make([]*utcptypes.Tool, 0, len(tools))
	for _, t := range tools {
		for _, tag := range t.Tags {
			if wanted[strings.ToLower(tag)] {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func (st *TagAndDescriptionWordMatch) scoreTool(t *utcptypes.Tool, query, queryLower string, queryTokens []string) float64 {
	var score float64

	subName := t.Name
	if idx := strings.LastIndex(subName, "."); idx >= 0 {
		subName = subName[idx+1:]
	}
	subNameLower := strings.ToLower(subName)
	if subNameLower == queryLower || strings.Contains(subNameLower, queryLower) || strings.Contains(queryLower, subNameLower) {
		score += 2 * st.TagWeight
	}
	nameTokens := tokenize(subName)
	score += st.TagWeight * float64(countTokenMatches(queryTokens, nameTokens))

	for _, tag := range t.Tags {
		tagLower := strings.ToLower(tag)
		if strings.Contains(tagLower, queryLower) || strings.Contains(queryLower, tagLower) {
			score += st.TagWeight
		}
		tagTokens := tokenize(tag)
		score += 0.5 * st.TagWeight * float64(countTokenMatches(queryTokens, tagTokens))
	}

	descTokens := tokenize(t.Description)
	descSet := make(map[string]bool, len(descTokens))
	for _, tok := range descTokens {
		descSet[tok] = true
	}
	for _, qt := range queryTokens {
		if len(qt) > 2 && descSet[qt] {
			score += st.DescriptionWeight
		}
	}

	return score
}

func countTokenMatches(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, tok := range b {
		set[tok] = true
	}
	count := 0
	for _, tok := range a {
		if set[tok] {
			count++
		}
	}
	return count
}

// Factory builds a Strategy from its decoded configuration.
type Factory func() (Strategy, error)

// Kinds is the registry of search-strategy kinds, keyed by
// tool_search_strategy kind name.
var Kinds = kindregistry.New[Factory]("tool_search_strategy")

var bootstrap kindregistry.Guard

// Bootstrap installs the built-in tag_and_description_word_match strategy.
func Bootstrap() {
	bootstrap.Do(func() {
		Kinds.Register(KindTagAndDescriptionWordMatch, func() (Strategy, error) {
			return NewTagAndDescriptionWordMatch(), nil
		}, false)
	})
}
