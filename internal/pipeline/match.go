package pipeline

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"gyscontrol/internal"
	"gyscontrol/internal/config"
	"gyscontrol/internal/util"
)

type MatchStrategy string

const (
	StrategyNone         MatchStrategy = ""
	StrategyCode         MatchStrategy = "code"
	StrategyDescription  MatchStrategy = "description"
	StrategyEmbeddedCode MatchStrategy = "embedded_code"
)

// MatchResult is the default mapping proposed for one row. Target is empty when
// no strategy produced a unique match. When a strategy stopped on a tie,
// Strategy names it and Candidates lists the tied quoted items.
type MatchResult struct {
	LineNo      int
	Target      string
	Strategy    MatchStrategy
	Candidates  []string
	Confidence  float64
	Accepted    bool
	Suggestions []Suggestion
}

func (r MatchResult) Mapped() bool {
	return r.Target != ""
}

// Suggestion is a ranked manual-mapping hint for an unmapped row. It is never applied.
type Suggestion struct {
	QuotedItemID string
	Code         string
	Description  string
	GroupName    string
	Score        float64
}

// FlattenQuotedItems lists every quoted item of every group together with its group.
func FlattenQuotedItems(groups []internal.EquipmentGroup) []internal.QuotedItemOption {
	out := []internal.QuotedItemOption{}
	for _, group := range groups {
		for _, item := range group.Items {
			out = append(out, internal.QuotedItemOption{
				ID:          item.ID,
				Code:        item.Code,
				Description: item.Description,
				Category:    item.Category,
				GroupID:     group.ID,
				GroupName:   group.Name,
				CatalogID:   item.CatalogID,
			})
		}
	}
	return out
}

type QuotedMatcher struct {
	cfg     config.Config
	options []internal.QuotedItemOption
	byID    map[string]internal.QuotedItemOption
	byCode  map[string][]int
	targets []string
}

func NewQuotedMatcher(cfg config.Config, options []internal.QuotedItemOption) *QuotedMatcher {
	m := &QuotedMatcher{
		cfg:     cfg,
		options: options,
		byID:    make(map[string]internal.QuotedItemOption, len(options)),
		byCode:  map[string][]int{},
		targets: make([]string, 0, len(options)),
	}
	for i, opt := range options {
		m.byID[opt.ID] = opt
		if key := util.NormalizeKey(opt.Code); key != "" {
			m.byCode[key] = append(m.byCode[key], i)
		}
		m.targets = append(m.targets, strings.TrimSpace(opt.Code+" "+opt.Description))
	}
	return m
}

// Option returns the quoted item with the given id.
func (m *QuotedMatcher) Option(id string) (internal.QuotedItemOption, bool) {
	opt, ok := m.byID[id]
	return opt, ok
}

func (m *QuotedMatcher) Options() []internal.QuotedItemOption {
	return m.options
}

// Match runs the code, description and embedded-code strategies in order.
// A strategy that finds exactly one quoted item maps the row. A strategy that
// finds several leaves the row unmapped and later strategies are not tried.
func (m *QuotedMatcher) Match(row internal.VerifiedRow) MatchResult {
	result := MatchResult{LineNo: row.LineNo}

	strategies := []struct {
		name  MatchStrategy
		apply func(internal.ImportRow) []int
	}{
		{StrategyCode, m.byExactCode},
		{StrategyDescription, m.byDescription},
		{StrategyEmbeddedCode, m.byEmbeddedCode},
	}
	for _, s := range strategies {
		hits := s.apply(row.ImportRow)
		if len(hits) == 0 {
			continue
		}
		result.Strategy = s.name
		if len(hits) > 1 {
			for _, idx := range hits {
				result.Candidates = append(result.Candidates, m.options[idx].ID)
			}
			break
		}
		opt := m.options[hits[0]]
		result.Target = opt.ID
		result.Confidence = m.confidence(s.name, row.ImportRow, opt)
		result.Accepted = result.Confidence >= m.cfg.MatchConfidenceAccept
		break
	}

	if !result.Mapped() {
		result.Suggestions = m.suggest(row.ImportRow)
	}
	return result
}

// DefaultMappings returns line number -> quoted item id for every row that matched.
func (m *QuotedMatcher) DefaultMappings(rows []internal.VerifiedRow) map[int]string {
	out := make(map[int]string, len(rows))
	for _, row := range rows {
		if res := m.Match(row); res.Mapped() {
			out[row.LineNo] = res.Target
		}
	}
	return out
}

func (m *QuotedMatcher) byExactCode(row internal.ImportRow) []int {
	key := row.Key()
	if key == "" {
		return nil
	}
	return m.byCode[key]
}

func (m *QuotedMatcher) byDescription(row internal.ImportRow) []int {
	desc := strings.TrimSpace(row.Description)
	if desc == "" {
		return nil
	}
	var hits []int
	for i, opt := range m.options {
		other := strings.TrimSpace(opt.Description)
		if !util.ContainsFold(desc, other) {
			continue
		}
		if minLen := m.cfg.MatchMinFuzzyLen; minLen > 0 && shorterRuneLen(desc, other) < minLen {
			continue
		}
		hits = append(hits, i)
	}
	return hits
}

func (m *QuotedMatcher) byEmbeddedCode(row internal.ImportRow) []int {
	code := strings.TrimSpace(row.Code)
	if utf8.RuneCountInString(code) < m.cfg.MatchMinEmbeddedCodeLen {
		return nil
	}
	key := strings.ToLower(code)
	var hits []int
	for i, opt := range m.options {
		if strings.Contains(strings.ToLower(opt.Description), key) {
			hits = append(hits, i)
		}
	}
	return hits
}

func (m *QuotedMatcher) confidence(strategy MatchStrategy, row internal.ImportRow, opt internal.QuotedItemOption) float64 {
	if strategy == StrategyCode {
		return 1
	}
	return util.DiceCoefficient(util.NormalizeDescription(row.Description), util.NormalizeDescription(opt.Description))
}

// suggest ranks quoted items by how many of the row's terms fuzzily occur in
// their code and description.
func (m *QuotedMatcher) suggest(row internal.ImportRow) []Suggestion {
	limit := m.cfg.MatchSuggestionLimit
	if limit <= 0 || len(m.options) == 0 {
		return nil
	}

	terms := util.Tokenize(row.Description)
	if code := strings.TrimSpace(row.Code); code != "" {
		terms = append(terms, code)
	}

	type scored struct {
		idx      int
		hits     int
		distance int
		dice     float64
	}
	byIdx := map[int]*scored{}
	for _, term := range terms {
		if utf8.RuneCountInString(term) < 3 {
			continue
		}
		for _, rank := range fuzzy.RankFindNormalizedFold(term, m.targets) {
			s, ok := byIdx[rank.OriginalIndex]
			if !ok {
				s = &scored{idx: rank.OriginalIndex}
				byIdx[rank.OriginalIndex] = s
			}
			s.hits++
			s.distance += rank.Distance
		}
	}
	if len(byIdx) == 0 {
		return nil
	}

	normalized := util.NormalizeDescription(row.Description)
	ranked := make([]*scored, 0, len(byIdx))
	for _, s := range byIdx {
		s.dice = util.DiceCoefficient(normalized, util.NormalizeDescription(m.options[s.idx].Description))
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if a.dice != b.dice {
			return a.dice > b.dice
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.idx < b.idx
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Suggestion, 0, len(ranked))
	for _, s := range ranked {
		opt := m.options[s.idx]
		out = append(out, Suggestion{
			QuotedItemID: opt.ID,
			Code:         opt.Code,
			Description:  opt.Description,
			GroupName:    opt.GroupName,
			Score:        s.dice,
		})
	}
	return out
}

func shorterRuneLen(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la < lb {
		return la
	}
	return lb
}
