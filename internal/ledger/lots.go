package ledger

import "time"

// Lot tracks how much of a credit entry is still unconsumed. Debits deplete
// lots oldest-first, so the remaining amount per lot is fully determined by a
// replay of the member's ledger in commit order.
type Lot struct {
	Entry     Transaction
	Remaining int64
}

// ReplayLots computes the open lots for a member from their full ledger,
// which must be ordered oldest-first. Credit entries open a lot; redeem and
// admin-deduct entries consume from the oldest lot with remaining points;
// expire entries close out the specific lot named by their source ref.
func ReplayLots(entries []Transaction) []Lot {
	var lots []Lot
	byID := make(map[string]int)

	for _, e := range entries {
		switch {
		case e.Kind.Credits():
			byID[e.ID.String()] = len(lots)
			lots = append(lots, Lot{Entry: e, Remaining: e.Amount})
		case e.Kind == KindExpire:
			if i, ok := byID[e.SourceRef]; ok {
				lots[i].Remaining += e.Amount // amount is negative
				if lots[i].Remaining < 0 {
					lots[i].Remaining = 0
				}
			}
		default: // redeem, admin_deduct
			consume(lots, -e.Amount)
		}
	}

	return lots
}

// consume depletes lots FIFO by the given positive amount.
func consume(lots []Lot, amount int64) {
	for i := range lots {
		if amount <= 0 {
			return
		}
		if lots[i].Remaining <= 0 {
			continue
		}
		take := lots[i].Remaining
		if take > amount {
			take = amount
		}
		lots[i].Remaining -= take
		amount -= take
	}
}

// ExpirableLots returns the earn lots past their expiry that still have
// points remaining, in FIFO order. Admin-award lots never expire.
func ExpirableLots(lots []Lot, now time.Time) []Lot {
	var out []Lot
	for _, l := range lots {
		if l.Entry.Kind != KindEarn || l.Entry.ExpiresAt == nil {
			continue
		}
		if l.Remaining > 0 && !l.Entry.ExpiresAt.After(now) {
			out = append(out, l)
		}
	}
	return out
}
