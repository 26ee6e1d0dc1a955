package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"crocus/internal/config"
	"crocus/internal/fx"
	"crocus/internal/heuristics"
	"crocus/internal/models"
)

// Split rules, recorded on every founders movement.
const (
	SplitManual       = "manual"
	SplitTypeEqual    = "type_equal"
	SplitBaseOwner    = "base_owner"
	SplitPercentTable = "percent_table"
	SplitGlobalShares = "global_shares"
)

var hundred = decimal.NewFromInt(100)

// SplitCommission divides a booking's commission between the owners.
// The first rule that applies wins: a manual override is taken verbatim;
// a non-default booking type splits equally across the configured owners
// (50/50 for the usual two); the default type goes 100% to its base owner
// or follows its percentage table; otherwise the global shares apply. Every configured owner is present in the result. Equal
// and global splits give the rounding remainder to the last owner so the
// parts add up to the commission.
func SplitCommission(b *models.Booking, owners []config.Owner, defaultType string) (models.OwnerAmounts, string) {
	commission := b.Commission()
	out := make(models.OwnerAmounts, len(owners))
	for _, o := range owners {
		out[o.ID] = decimal.Zero
	}

	if manual, ok := b.ManualOverride(); ok {
		for id, v := range manual {
			out[id] = fx.Round2(v)
		}
		return out, SplitManual
	}

	if len(owners) == 0 {
		return out, SplitGlobalShares
	}

	bookingType := strings.TrimSpace(b.Type)
	if bookingType != "" && !strings.EqualFold(bookingType, defaultType) {
		share := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(owners))))
		splitWithRemainder(out, owners, commission, func(config.Owner) decimal.Decimal { return share })
		return out, SplitTypeEqual
	}

	if b.BaseOwner != nil {
		for _, o := range owners {
			if o.ID == *b.BaseOwner {
				out[o.ID] = fx.Round2(commission)
				return out, SplitBaseOwner
			}
		}
	}

	if percents, ok := b.Percents(); ok {
		for id, p := range percents {
			out[id] = fx.Round2(commission.Mul(p).Div(hundred))
		}
		return out, SplitPercentTable
	}

	splitWithRemainder(out, owners, commission, func(o config.Owner) decimal.Decimal { return o.ShareDecimal() })
	return out, SplitGlobalShares
}

func splitWithRemainder(out models.OwnerAmounts, owners []config.Owner, total decimal.Decimal, share func(config.Owner) decimal.Decimal) {
	allocated := decimal.Zero
	for i, o := range owners {
		if i == len(owners)-1 {
			out[o.ID] = fx.Round2(total).Sub(allocated)
			return
		}
		v := fx.Round2(total.Mul(share(o)))
		out[o.ID] = v
		allocated = allocated.Add(v)
	}
}

// CompletionRatio is how much of a booking has actually been settled:
// the smaller of collected/brutto and paid/net, clamped to [0, 1]. A
// non-positive brutto or net counts as fully settled on that side.
func CompletionRatio(b *models.Booking, collected, paid decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	part := func(done, planned decimal.Decimal) decimal.Decimal {
		if !planned.IsPositive() {
			return one
		}
		return done.Div(planned)
	}

	ratio := decimal.Min(part(collected, b.Brutto), part(paid, b.InternalNet))
	if ratio.IsNegative() {
		return decimal.Zero
	}
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

// ownerIDs returns the keys of amounts in a stable order.
func ownerIDs(amounts models.OwnerAmounts) []string {
	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PnLBucket is the P&L line a transaction contributes to.
type PnLBucket string

const (
	PnLRevenue PnLBucket = "revenue"
	PnLCogs    PnLBucket = "cogs"
	PnLOpex    PnLBucket = "opex"
)

// P&L exclusion reasons.
const (
	ExcludedTransfer        = "transfer"
	ExcludedNoCategory      = "no_category"
	ExcludedUnknownCategory = "unknown_category"
	ExcludedNoRate          = "no_rate"
)

// ClassifyPnL places a done transaction in a P&L bucket, or returns the
// reason it is left out. Income categories are revenue; cogs categories
// and expense categories whose name carries a cogs marker are cogs; any
// other expense is opex.
func ClassifyPnL(t *models.Transaction, category *models.Category, markers []string) (PnLBucket, string) {
	if t.Kind == models.MovementTransfer {
		return "", ExcludedTransfer
	}
	if category == nil {
		return "", ExcludedNoCategory
	}
	if category.Side == models.CategorySideIncome {
		return PnLRevenue, ""
	}
	if heuristics.IsCogs(category, markers) {
		return PnLCogs, ""
	}
	return PnLOpex, ""
}

// signedForBucket orients a magnitude: revenue grows with inflows, cost
// lines grow with outflows.
func signedForBucket(bucket PnLBucket, kind models.MovementKind, amount decimal.Decimal) decimal.Decimal {
	inflow := kind == models.MovementIn
	if bucket == PnLRevenue {
		if inflow {
			return amount
		}
		return amount.Neg()
	}
	if inflow {
		return amount.Neg()
	}
	return amount
}
