package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// StrategyKind names a recommendation heuristic.
type StrategyKind int

// Known strategy kinds.
const (
	FrequentlyBoughtTogether StrategyKind = iota + 1
	CustomerHistory
	Seasonal
	Popular
	RandomFallback
)

// DefaultSourceOrder is used when a request names no strategies.
var DefaultSourceOrder = []StrategyKind{FrequentlyBoughtTogether, Popular, Seasonal}

// ErrUnknownStrategy reports an unrecognised strategy name or value.
var ErrUnknownStrategy = errors.New("unknown recommendation strategy")

var kindNames = map[StrategyKind]string{
	FrequentlyBoughtTogether: "frequently_bought_together",
	CustomerHistory:          "customer_history",
	Seasonal:                 "seasonal",
	Popular:                  "popular",
	RandomFallback:           "random",
}

var kindAliases = map[string]StrategyKind{
	"fbt":     FrequentlyBoughtTogether,
	"history": CustomerHistory,
}

// String returns the wire name of the kind.
func (k StrategyKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StrategyKind(%d)", int(k))
}

// Valid reports whether k is a known kind.
func (k StrategyKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseStrategyKind maps a wire name or alias to a kind.
func ParseStrategyKind(s string) (StrategyKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// ParseSource accepts one or more values, each a single strategy name or a
// comma separated list, and returns them as an ordered list of kinds.
// Blank input yields nil so the default order applies.
func ParseSource(values ...string) ([]StrategyKind, error) {
	var kinds []StrategyKind
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := ParseStrategyKind(part)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Request describes one recommendation call.
type Request struct {
	Limit       int
	ExcludeIDs  []string
	CategoryID  string
	CustomerID  string
	CartItemIDs []string
	SourceOrder []StrategyKind
}

// Item is a single recommended menu item.
type Item struct {
	ItemID     string   `json:"item_id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	CategoryID string   `json:"category_id"`
	Active     bool     `json:"active"`
	Available  bool     `json:"available"`
	Reason     string   `json:"reason"`
	Score      *float64 `json:"score,omitempty"`
}

// Normalize trims and deduplicates ids, drops repeated strategies keeping the
// first, and applies DefaultSourceOrder when none is given.
func (r Request) Normalize() (Request, error) {
	out := Request{
		Limit:       r.Limit,
		ExcludeIDs:  cleanIDs(r.ExcludeIDs),
		CategoryID:  strings.TrimSpace(r.CategoryID),
		CustomerID:  strings.TrimSpace(r.CustomerID),
		CartItemIDs: cleanIDs(r.CartItemIDs),
	}
	source := r.SourceOrder
	if len(source) == 0 {
		source = DefaultSourceOrder
	}
	seen := make(map[StrategyKind]struct{}, len(source))
	for _, k := range source {
		if !k.Valid() {
			return Request{}, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(k))
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.SourceOrder = append(out.SourceOrder, k)
	}
	return out, nil
}

// Exclusions returns the sorted union of ExcludeIDs and CartItemIDs.
func (r Request) Exclusions() []string {
	set := make(map[string]struct{}, len(r.ExcludeIDs)+len(r.CartItemIDs))
	for _, id := range r.ExcludeIDs {
		set[id] = struct{}{}
	}
	for _, id := range r.CartItemIDs {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

func cleanIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
