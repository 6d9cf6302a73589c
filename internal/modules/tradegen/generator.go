package tradegen

import (
	"fmt"

	"github.com/aristath/sleeveworks/internal/domain"
	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Generator turns an allocation picture into an ordered list of trade
// intents. Deterministic and idempotent: the same context and timestamp
// always produce the same trade list.
type Generator struct {
	log zerolog.Logger
}

// NewGenerator creates a new trade generator
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{
		log: log.With().Str("service", "tradegen").Logger(),
	}
}

// Generate runs one strategy over the context and returns the plan.
// Input errors (unknown strategy, missing model) surface immediately;
// data gaps degrade into warnings; invariant violations abort.
func (g *Generator) Generate(ctx *GenerateContext, strategy Strategy) (*Plan, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy.NeedsModel() && ctx.Allocation == nil {
		return nil, allocation.ErrNoModel
	}

	r := &run{
		ctx:        ctx,
		cash:       ctx.AvailableCash,
		sold:       make(map[string]bool),
		soldQty:    make(map[snapshot.PositionKey]int64),
		soldAtLoss: make(map[string]bool),
		harvesting: make(map[string]bool),
		seen:       make(map[string]bool),
	}

	if ctx.Blocked.FailClosed() {
		r.warn("wash-sale tracker unavailable: treating all tickers as blocked for buying")
	}

	switch strategy {
	case StrategyAllocation:
		r.runAllocation()
	case StrategyTLHSwap:
		r.runHarvest(true)
	case StrategyTLHRebalance:
		r.runHarvest(false)
		r.runRebalanceBuys()
	case StrategyInvestCash:
		r.runInvestCash()
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	plan := &Plan{
		ID:          uuid.NewString(),
		GroupID:     ctx.Group.ID,
		Strategy:    strategy,
		Trades:      r.trades,
		Warnings:    r.warnings,
		GeneratedAt: ctx.Now,
	}

	g.log.Info().
		Str("group_id", ctx.Group.ID).
		Str("strategy", string(strategy)).
		Int("trades", len(plan.Trades)).
		Int("warnings", len(plan.Warnings)).
		Msg("Trade plan generated")

	return plan, nil
}

// run holds the mutable state of one generation pass.
type run struct {
	ctx          *GenerateContext
	cash         float64
	trades       []domain.TradeIntent
	warnings     []string
	sold         map[string]bool                // tickers sold this run; never rebought
	soldQty      map[snapshot.PositionKey]int64 // for the oversell invariant
	soldAtLoss   map[string]bool                // tickers whose sell realizes a loss
	harvesting   map[string]bool                // tickers scheduled for harvest, marked before any buy
	soldBySleeve map[string]float64
	seen         map[string]bool // warning dedupe
}

func (r *run) warn(msg string) {
	if r.seen[msg] {
		return
	}
	r.seen[msg] = true
	r.warnings = append(r.warnings, msg)
}

// priceFor resolves a tradable price. Cash is fixed at 1.0; a missing or
// non-positive price cannot size a share count.
func (r *run) priceFor(ticker string) (float64, bool) {
	if ticker == domain.CashTicker {
		return 1.0, true
	}
	price, ok := r.ctx.Snap.Prices[ticker]
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

// driftRows converts allocation rows into sortable drift rows, leaving out
// the cash sleeve: cash is deployed or accumulated, never traded.
func (r *run) driftRows() []driftRow {
	var rows []driftRow
	for _, s := range r.ctx.Allocation.Sleeves {
		if s.SleeveID == r.ctx.Snap.CashSleeve {
			continue
		}
		rows = append(rows, driftRow{sleeveID: s.SleeveID, difference: s.Difference})
	}
	return rows
}

// runAllocation corrects drift: sells over-target sleeves first so the
// proceeds can fund the under-target buys, then buys in descending need.
// Differences below the minimum trade amount are rounding noise, not drift.
func (r *run) runAllocation() {
	rows := r.driftRows()

	var sells, buys []driftRow
	for _, row := range rows {
		if absFloat(row.difference) < r.ctx.MinTradeAmount {
			continue
		}
		if row.difference < 0 {
			sells = append(sells, row)
		} else {
			buys = append(buys, row)
		}
	}

	orderByMagnitude(sells)
	for _, row := range sells {
		r.sellFromSleeve(row.sleeveID, -row.difference)
	}

	orderByMagnitude(buys)
	for _, row := range buys {
		reason := fmt.Sprintf("Sleeve %s under target by %.2f", row.sleeveID, row.difference)
		r.buyIntoSleeve(row.sleeveID, row.difference, reason)
	}
}

// runInvestCash deploys idle cash across under-target sleeves in descending
// order of difference. Never sells.
func (r *run) runInvestCash() {
	var buys []driftRow
	for _, row := range r.driftRows() {
		if row.difference > 0 {
			buys = append(buys, row)
		}
	}
	orderByMagnitude(buys)

	for _, row := range buys {
		if r.cash <= 0 {
			break
		}
		reason := fmt.Sprintf("Deploy idle cash into sleeve %s (under target by %.2f)",
			row.sleeveID, row.difference)
		r.buyIntoSleeve(row.sleeveID, row.difference, reason)
	}
}

// harvestLot is a holding whose unrealized loss qualifies for harvesting.
type harvestLot struct {
	holding   domain.Holding
	price     float64
	loss      float64
	costValue float64
	sleeveID  string
}

// harvestLots scans the snapshot for qualifying lossy lots and marks every
// such ticker up front. Replacements are chosen only after the full set is
// known, so a plan can never buy a ticker it is about to sell at a loss.
func (r *run) harvestLots() []harvestLot {
	var lots []harvestLot
	for _, h := range r.ctx.Snap.Holdings {
		if h.Ticker == domain.CashTicker {
			continue
		}

		price, ok := r.priceFor(h.Ticker)
		if !ok {
			r.warn(fmt.Sprintf("no price for held ticker %s, skipping", h.Ticker))
			continue
		}

		loss := -h.UnrealizedPL(price)
		costValue := h.Quantity * h.CostBasis
		if !r.ctx.Harvest.Qualifies(loss, costValue) {
			continue
		}
		if int64(h.Quantity) <= 0 {
			continue
		}

		membership, inSleeve := r.ctx.Snap.Index[h.Ticker]
		if !inSleeve {
			r.warn(fmt.Sprintf("lossy ticker %s belongs to no sleeve, skipping harvest", h.Ticker))
			continue
		}

		r.harvesting[h.Ticker] = true
		lots = append(lots, harvestLot{
			holding:   h,
			price:     price,
			loss:      loss,
			costValue: costValue,
			sleeveID:  membership.SleeveID,
		})
	}
	return lots
}

// runHarvest sells every lot whose unrealized loss qualifies. With
// replaceInSleeve the proceeds buy the next-ranked security in the same
// sleeve, holding exposure constant; otherwise they accumulate as cash for
// runRebalanceBuys.
func (r *run) runHarvest(replaceInSleeve bool) {
	for _, lot := range r.harvestLots() {
		h := lot.holding
		sellQty := int64(h.Quantity)
		sellValue := float64(sellQty) * lot.price

		var replacement *registry.SleeveMember
		var replacementPrice float64
		if replaceInSleeve {
			// Never the ticker just sold, nor any other lot being
			// harvested: both would be an immediate wash sale.
			replacement, replacementPrice = r.findBuyCandidate(lot.sleeveID, h.AccountID, h.Ticker)
			if replacement == nil {
				r.warn(fmt.Sprintf("sleeve %s: no unblocked replacement for %s, skipping harvest",
					lot.sleeveID, h.Ticker))
				continue
			}
			if formulas.WholeShares(sellValue, replacementPrice) == 0 {
				r.warn(fmt.Sprintf("lot %s/%s too small to replace with %s, skipping harvest",
					h.AccountID, h.Ticker, replacement.Ticker))
				continue
			}
		}

		lossPct := 0.0
		if lot.costValue > 0 {
			lossPct = lot.loss / lot.costValue * 100
		}
		r.addSell(h.AccountID, h.Ticker, sellQty, lot.price,
			fmt.Sprintf("Harvest loss of %.2f on %s (%.1f%% of basis)", lot.loss, h.Ticker, lossPct))
		r.soldAtLoss[h.Ticker] = true
		r.soldValueBySleeve(lot.sleeveID, sellValue)

		if replaceInSleeve {
			buyQty := formulas.WholeShares(sellValue, replacementPrice)
			r.addBuy(h.AccountID, replacement.Ticker, buyQty, replacementPrice,
				fmt.Sprintf("Replace harvested %s within sleeve %s", h.Ticker, lot.sleeveID))
		}
	}
}

// runRebalanceBuys routes harvested proceeds (plus any starting cash) into
// the most under-target sleeves. Differences are adjusted for the value the
// harvest just sold out of each sleeve.
func (r *run) runRebalanceBuys() {
	var buys []driftRow
	for _, row := range r.driftRows() {
		adjusted := row.difference + r.soldBySleeve[row.sleeveID]
		if adjusted > 0 {
			buys = append(buys, driftRow{sleeveID: row.sleeveID, difference: adjusted})
		}
	}
	orderByMagnitude(buys)

	for _, row := range buys {
		if r.cash <= 0 {
			break
		}
		reason := fmt.Sprintf("Harvest proceeds into sleeve %s (under target by %.2f)",
			row.sleeveID, row.difference)
		r.buyIntoSleeve(row.sleeveID, row.difference, reason)
	}
}

// sellFromSleeve raises up to amount from the sleeve's held positions in
// the uniform sell order. Proceeds are added to the run's cash.
func (r *run) sellFromSleeve(sleeveID string, amount float64) {
	var candidates []sellCandidate
	for _, h := range r.ctx.Snap.HoldingsInSleeve(sleeveID) {
		if h.Ticker == domain.CashTicker || h.Quantity < 1 {
			continue
		}
		price, ok := r.priceFor(h.Ticker)
		if !ok {
			r.warn(fmt.Sprintf("no price for held ticker %s, skipping", h.Ticker))
			continue
		}
		kind := registry.MemberKindAlternate
		if m, inSleeve := r.ctx.Snap.Index[h.Ticker]; inSleeve {
			kind = m.Kind
		}
		candidates = append(candidates, sellCandidate{
			holding:    h,
			price:      price,
			memberKind: kind,
			pl:         h.UnrealizedPL(price),
			longTerm:   h.IsLongTerm(r.ctx.Now),
		})
	}
	orderSellCandidates(candidates)

	remaining := amount
	for _, c := range candidates {
		if remaining < c.price {
			continue // a cheaper position later may still close part of the gap
		}

		key := snapshot.PositionKey{AccountID: c.holding.AccountID, Ticker: c.holding.Ticker}
		available := int64(c.holding.Quantity) - r.soldQty[key]
		qty := formulas.WholeShares(remaining, c.price)
		if qty > available {
			qty = available
		}
		if qty <= 0 {
			continue
		}

		value := float64(qty) * c.price
		note := "over target"
		if c.pl < 0 {
			note = "over target, realizes loss"
			r.soldAtLoss[c.holding.Ticker] = true
		}
		r.addSell(c.holding.AccountID, c.holding.Ticker, qty, c.price,
			fmt.Sprintf("Sleeve %s %s", sleeveID, note))
		remaining -= value
	}
}

// buyIntoSleeve buys up to amount of the sleeve's preferred unblocked
// member, constrained by the run's cash. Returns the dollars spent.
func (r *run) buyIntoSleeve(sleeveID string, amount float64, reason string) float64 {
	if sleeveID == r.ctx.Snap.CashSleeve {
		return 0 // leaving cash idle needs no trade
	}
	if _, ok := r.ctx.Sleeves[sleeveID]; !ok {
		r.warn(fmt.Sprintf("sleeve %s not found in registry", sleeveID))
		return 0
	}

	account := r.buyAccount()
	member, price := r.findBuyCandidate(sleeveID, account, "")
	if member == nil {
		r.warn(fmt.Sprintf("sleeve %s: no unblocked buy candidate, skipping", sleeveID))
		return 0
	}

	spend := amount
	if spend > r.cash {
		spend = r.cash
	}
	qty := formulas.WholeShares(spend, price)
	if qty <= 0 {
		return 0
	}

	r.addBuy(account, member.Ticker, qty, price, reason)
	return float64(qty) * price
}

// findBuyCandidate returns the lowest-rank buy-eligible member of the
// sleeve that is unblocked, priced, not sold or scheduled for harvest this
// run, and not the excluded ticker. nil when every candidate is ruled out.
func (r *run) findBuyCandidate(sleeveID, accountID, exclude string) (*registry.SleeveMember, float64) {
	sleeve, ok := r.ctx.Sleeves[sleeveID]
	if !ok {
		return nil, 0
	}

	for _, m := range sleeve.BuyCandidates() {
		if m.Ticker == exclude || r.sold[m.Ticker] || r.harvesting[m.Ticker] {
			continue
		}
		if r.ctx.Blocked.IsBlocked(m.Ticker, accountID, r.ctx.Now) {
			continue
		}
		price, priced := r.priceFor(m.Ticker)
		if !priced {
			r.warn(fmt.Sprintf("no price for buy candidate %s in sleeve %s", m.Ticker, sleeveID))
			continue
		}
		member := m
		return &member, price
	}
	return nil, 0
}

// buyAccount routes buys to the account holding the most idle cash; ties
// and the no-cash case fall back to the lowest account ID.
func (r *run) buyAccount() string {
	cashByAccount := make(map[string]float64)
	for _, h := range r.ctx.Snap.Holdings {
		if h.Ticker == domain.CashTicker {
			cashByAccount[h.AccountID] += h.Quantity
		}
	}

	best := ""
	bestCash := -1.0
	for _, id := range r.ctx.Group.AccountIDs {
		c := cashByAccount[id]
		if c > bestCash || (c == bestCash && (best == "" || id < best)) {
			best = id
			bestCash = c
		}
	}
	return best
}

func (r *run) addSell(accountID, ticker string, qty int64, price float64, reason string) {
	key := snapshot.PositionKey{AccountID: accountID, Ticker: ticker}
	r.soldQty[key] += qty
	r.sold[ticker] = true
	r.cash += float64(qty) * price
	r.trades = append(r.trades, domain.TradeIntent{
		AccountID:      accountID,
		Ticker:         ticker,
		Side:           domain.TradeSideSell,
		Quantity:       qty,
		EstimatedPrice: price,
		EstimatedValue: float64(qty) * price,
		Reason:         reason,
	})
}

func (r *run) addBuy(accountID, ticker string, qty int64, price float64, reason string) {
	r.cash -= float64(qty) * price
	r.trades = append(r.trades, domain.TradeIntent{
		AccountID:      accountID,
		Ticker:         ticker,
		Side:           domain.TradeSideBuy,
		Quantity:       qty,
		EstimatedPrice: price,
		EstimatedValue: float64(qty) * price,
		Reason:         reason,
	})
}

func (r *run) soldValueBySleeve(sleeveID string, value float64) {
	if r.soldBySleeve == nil {
		r.soldBySleeve = make(map[string]float64)
	}
	r.soldBySleeve[sleeveID] += value
}

// validate enforces the hard invariants after generation. A violation here
// is a defect; the whole computation is discarded rather than surface an
// illegal trade.
func (r *run) validate() error {
	for key, qty := range r.soldQty {
		held := r.ctx.Snap.QuantityHeld(key.AccountID, key.Ticker)
		if float64(qty) > held {
			return fmt.Errorf("%w: %s/%s sold %d held %.4f",
				ErrOversell, key.AccountID, key.Ticker, qty, held)
		}
	}

	for _, t := range r.trades {
		if t.Quantity <= 0 {
			return fmt.Errorf("trade for %s has non-positive quantity %d", t.Ticker, t.Quantity)
		}
		if t.Side == domain.TradeSideBuy {
			if r.ctx.Blocked.IsBlocked(t.Ticker, t.AccountID, r.ctx.Now) {
				return fmt.Errorf("%w: %s", ErrBlockedBuy, t.Ticker)
			}
			if r.soldAtLoss[t.Ticker] {
				return fmt.Errorf("%w: %s bought and sold at a loss in the same plan",
					ErrBlockedBuy, t.Ticker)
			}
		}
	}

	return nil
}
