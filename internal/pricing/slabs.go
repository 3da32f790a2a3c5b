package pricing

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// SlabInput is one untrusted slab-like record from the admin payload. Numbers
// arrive as json.Number so malformed values can be rejected instead of
// silently truncated.
type SlabInput struct {
	MinQty json.Number  `json:"minQty"`
	MaxQty *json.Number `json:"maxQty"`
	Price  string       `json:"price"`
}

// Slab is a validated, canonical pricing tier. MaxQty nil means open-ended.
type Slab struct {
	MinQty int
	MaxQty *int
	Price  string
}

// maxOrInf treats the open-ended tier as unbounded for sorting and overlap
// checks.
func (s Slab) maxOrInf() float64 {
	if s.MaxQty == nil {
		return math.Inf(1)
	}
	return float64(*s.MaxQty)
}

// Contains reports whether qty falls inside the closed interval
// [MinQty, MaxQty] (upper bound inclusive, absent bound unbounded).
func (s Slab) Contains(qty int) bool {
	if qty < s.MinQty {
		return false
	}
	return s.MaxQty == nil || qty <= *s.MaxQty
}

// NormalizeSlabs coerces, validates, and sorts a raw tiered-pricing table.
// Records with an unusable minQty or a blank price are dropped; every other
// violation aborts with the first offending rule so the admin sees one
// actionable message at a time.
func NormalizeSlabs(raw []SlabInput) ([]Slab, error) {
	slabs := make([]Slab, 0, len(raw))
	openEnded := 0

	for _, record := range raw {
		minQty, ok := parseQty(record.MinQty)
		if !ok || minQty <= 0 {
			continue
		}
		price := strings.TrimSpace(record.Price)
		if price == "" {
			continue
		}

		parsed, err := decimal.NewFromString(price)
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "slab price %q is not a valid amount", price)
		}
		if parsed.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "slab price %q must not be negative", price)
		}

		slab := Slab{MinQty: minQty, Price: parsed.String()}
		if record.MaxQty != nil {
			maxQty, ok := parseQty(*record.MaxQty)
			if !ok || maxQty < minQty {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "slab maxQty must be a number >= minQty %d", minQty)
			}
			slab.MaxQty = &maxQty
		} else {
			openEnded++
			if openEnded > 1 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "only one open-ended slab is permitted")
			}
		}
		slabs = append(slabs, slab)
	}

	sort.SliceStable(slabs, func(i, j int) bool {
		if slabs[i].MinQty != slabs[j].MinQty {
			return slabs[i].MinQty < slabs[j].MinQty
		}
		return slabs[i].maxOrInf() < slabs[j].maxOrInf()
	})

	for i := 1; i < len(slabs); i++ {
		prev, curr := slabs[i-1], slabs[i]
		if float64(prev.MinQty) <= curr.maxOrInf() && float64(curr.MinQty) <= prev.maxOrInf() {
			return nil, pkgerrors.Newf(
				pkgerrors.CodeValidation,
				"slab ranges overlap: minQty %d conflicts with minQty %d",
				prev.MinQty, curr.MinQty,
			)
		}
	}

	return slabs, nil
}

func parseQty(value json.Number) (int, bool) {
	parsed, err := value.Float64()
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	qty := int(parsed)
	if float64(qty) != parsed {
		return 0, false
	}
	return qty, true
}
