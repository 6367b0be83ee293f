package allocation

import (
	"math/rand"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func entry(id string, date time.Time, amount, paid int64) models.LedgerEntry {
	e := models.LedgerEntry{ID: models.RecordID(id), Date: date, Type: models.LedgerTypePayable, Amount: d(amount), PaidAmount: d(paid), CreatedAt: date}
	e.RefreshStatus()
	return e
}

func TestOldestEntryIsPaidFirst(t *testing.T) {
	jan := entry("jan", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 0)
	feb := entry("feb", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 100, 0)

	res := Allocate([]models.LedgerEntry{feb, jan}, d(150))
	if len(res.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(res.Allocations))
	}
	if res.Allocations[0].EntryId != "jan" || !res.Allocations[0].Applied.Equal(d(100)) {
		t.Fatalf("january should take 100 first, got %+v", res.Allocations[0])
	}
	if res.Allocations[1].EntryId != "feb" || !res.Allocations[1].Applied.Equal(d(50)) {
		t.Fatalf("february should take 50, got %+v", res.Allocations[1])
	}
	if res.Entries[0].Status != models.LedgerStatusPaid || res.Entries[1].Status != models.LedgerStatusPartiallyPaid {
		t.Fatalf("unexpected statuses %s %s", res.Entries[0].Status, res.Entries[1].Status)
	}
	if !feb.PaidAmount.IsZero() {
		t.Fatalf("inputs must not be modified")
	}
}

func TestTiesBreakByCreationOrder(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := entry("first", date, 50, 0)
	second := entry("second", date, 50, 0)
	second.CreatedAt = date.Add(time.Second)

	res := Allocate([]models.LedgerEntry{second, first}, d(50))
	if len(res.Allocations) != 1 || res.Allocations[0].EntryId != "first" {
		t.Fatalf("expected the earlier-created entry, got %+v", res.Allocations)
	}
}

func TestStopsWhenPaymentIsUsedUp(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := Allocate([]models.LedgerEntry{entry("a", date, 100, 60), entry("b", date.AddDate(0, 0, 1), 100, 0)}, d(40))
	if len(res.Allocations) != 1 || !res.Allocations[0].Applied.Equal(d(40)) {
		t.Fatalf("expected one allocation of 40, got %+v", res.Allocations)
	}
	if !res.Unapplied.IsZero() {
		t.Fatalf("nothing should be left, got %s", res.Unapplied)
	}
}

// Σ applied = min(payment, Σ remaining) and no entry is overpaid.
func TestConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for round := 0; round < 200; round++ {
		var entries []models.LedgerEntry
		for i := 0; i < 1+rng.Intn(6); i++ {
			amount := int64(1 + rng.Intn(500))
			paid := int64(rng.Intn(int(amount)))
			entries = append(entries, entry(string(rune('a'+i)), base.AddDate(0, 0, rng.Intn(30)), amount, paid))
		}
		payment := d(int64(rng.Intn(1500)))

		res := Allocate(entries, payment)
		want := decimal.Min(payment, TotalRemaining(entries))
		if !res.Applied().Equal(want) {
			t.Fatalf("round %d: applied %s, want %s", round, res.Applied(), want)
		}
		if !res.Applied().Add(res.Unapplied).Equal(payment) {
			t.Fatalf("round %d: payment not conserved", round)
		}
		for _, e := range res.Entries {
			if e.PaidAmount.GreaterThan(e.Amount) {
				t.Fatalf("round %d: entry %s overpaid %s > %s", round, e.ID, e.PaidAmount, e.Amount)
			}
		}
	}
}

func TestOutstandingFilters(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	paid := entry("paid", date, 100, 100)
	open := entry("open", date, 100, 0)
	open.ContactId = "c1"
	other := entry("other", date, 100, 0)
	other.ContactId = "c2"
	recv := entry("recv", date, 100, 0)
	recv.ContactId = "c1"
	recv.Type = models.LedgerTypeReceivable
	deleted := entry("deleted", date, 100, 0)
	deleted.ContactId = "c1"
	deleted.DeletedAt = &date

	got := Outstanding([]models.LedgerEntry{paid, open, other, recv, deleted}, "c1", models.LedgerTypePayable)
	if len(got) != 1 || got[0].ID != "open" {
		t.Fatalf("unexpected outstanding %+v", got)
	}
}
