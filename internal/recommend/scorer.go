// Package recommend suggests related products from association rules. Callers treat it
// as optional: a failing scorer yields no suggestions rather than an error.
package recommend

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

type Scorer interface {
	// Recommend returns up to topN SKUs related to skus, best first, excluding skus.
	Recommend(ctx context.Context, skus []string, topN int) ([]string, error)
}

type Metric string

const (
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricSupport    Metric = "support"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricConfidence, MetricLift, MetricSupport:
		return m, nil
	case "":
		return MetricConfidence, nil
	default:
		return "", fmt.Errorf("unknown recommendation metric %q", s)
	}
}

type Rule struct {
	Antecedents []string `json:"antecedents"`
	Consequents []string `json:"consequents"`
	Support     float64  `json:"support"`
	Confidence  float64  `json:"confidence"`
	Lift        float64  `json:"lift"`
}

func (r Rule) score(m Metric) float64 {
	switch m {
	case MetricLift:
		return r.Lift
	case MetricSupport:
		return r.Support
	default:
		return r.Confidence
	}
}

// RulesScorer ranks consequents of the rules whose antecedents contain an input SKU.
type RulesScorer struct {
	metric Metric
	// bySKU holds, per antecedent SKU, the rules mentioning it sorted best first.
	bySKU map[string][]Rule
}

func NewRulesScorer(rules []Rule, metric Metric) *RulesScorer {
	bySKU := make(map[string][]Rule)
	for _, r := range rules {
		for _, sku := range r.Antecedents {
			bySKU[sku] = append(bySKU[sku], r)
		}
	}
	for sku, rs := range bySKU {
		slices.SortStableFunc(rs, func(a, b Rule) int {
			return cmp.Compare(b.score(metric), a.score(metric))
		})
		bySKU[sku] = rs
	}
	return &RulesScorer{metric: metric, bySKU: bySKU}
}

// LoadRules reads a JSON array of rules.
func LoadRules(path string, metric Metric) (*RulesScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return NewRulesScorer(rules, metric), nil
}

func (s *RulesScorer) Recommend(ctx context.Context, skus []string, topN int) ([]string, error) {
	if topN <= 0 || len(skus) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputs := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		inputs[sku] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, sku := range skus {
		rules := s.bySKU[sku]
		if len(rules) > topN {
			rules = rules[:topN]
		}
		for _, r := range rules {
			for _, c := range r.Consequents {
				if _, ok := inputs[c]; ok {
					continue
				}
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// NoopScorer never recommends anything.
type NoopScorer struct{}

func (NoopScorer) Recommend(context.Context, []string, int) ([]string, error) { return nil, nil }
