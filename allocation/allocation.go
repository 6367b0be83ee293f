package allocation

import (
	"slices"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

// Allocation is the share of a payment applied to one ledger entry.
type Allocation struct {
	EntryId models.RecordID
	Applied decimal.Decimal
}

// Result carries the allocations, the updated copies of every entry paid down, and whatever
// part of the payment found no outstanding balance.
type Result struct {
	Allocations []Allocation
	Entries     []models.LedgerEntry
	Unapplied   decimal.Decimal
}

// Applied is the total distributed across entries.
func (r Result) Applied() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Allocations {
		total = total.Add(a.Applied)
	}
	return total
}

// Allocate distributes payment across outstanding entries oldest first (date, then creation
// order). The caller excludes entries that are already paid. Inputs are not modified.
func Allocate(outstanding []models.LedgerEntry, payment decimal.Decimal) Result {
	entries := slices.Clone(outstanding)
	SortOldestFirst(entries)

	res := Result{Unapplied: decimal.Max(payment, decimal.Zero)}
	for i := range entries {
		if !res.Unapplied.IsPositive() {
			break
		}
		entry := &entries[i]
		remaining := entry.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		applied := decimal.Min(res.Unapplied, remaining)
		entry.PaidAmount = entry.PaidAmount.Add(applied)
		entry.RefreshStatus()
		res.Unapplied = res.Unapplied.Sub(applied)
		res.Allocations = append(res.Allocations, Allocation{EntryId: entry.ID, Applied: applied})
		res.Entries = append(res.Entries, *entry)
	}
	return res
}

// Apply pays amount against a single entry, capped at what it still owes.
func Apply(entry models.LedgerEntry, amount decimal.Decimal) Result {
	return Allocate([]models.LedgerEntry{entry}, amount)
}

// Outstanding keeps active payable/receivable entries of one contact and kind that still owe money.
func Outstanding(entries []models.LedgerEntry, contact models.RecordID, kind models.LedgerType) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range entries {
		if e.DeletedAt != nil || e.Type != kind || e.Status == models.LedgerStatusPaid {
			continue
		}
		if !contact.IsZero() && e.ContactId != contact {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TotalRemaining sums what the entries still owe.
func TotalRemaining(entries []models.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Remaining())
	}
	return total
}

func SortOldestFirst(entries []models.LedgerEntry) {
	slices.SortStableFunc(entries, func(a, b models.LedgerEntry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
