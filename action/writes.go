package action

import "bitbucket.org/mmdatafocus/tradebooks/models"

// Key names one row.
type Key struct {
	Kind models.EntityKind
	ID   models.RecordID
}

// openingKey stands for the whole set of opening rows, which SetInitialBalances replaces at once.
var openingKey = Key{Kind: models.EntityInitialBalance}

func keyOf(r models.Record) Key { return Key{Kind: r.Kind(), ID: r.GetID()} }

func payloadKey(p RecordPayload, out []Key) []Key {
	if r, err := p.Record(); err == nil {
		out = append(out, keyOf(r))
	}
	return out
}

func settlementKeys(s *Settlement, out []Key) []Key {
	out = payloadKey(s.Payment, out)
	for i := range s.Ledgers {
		out = append(out, keyOf(&s.Ledgers[i]))
	}
	for i := range s.Installments {
		out = append(out, keyOf(&s.Installments[i]))
	}
	return out
}

// Writes lists the rows a creates or overwrites on the remote store. Rows it only refers to
// are not included. Settlements and stock edits carry absolute amounts, so two actions
// writing the same row must reach the remote store in queue order.
func Writes(a Action) []Key {
	var out []Key
	switch v := a.(type) {
	case *CreateRecord:
		out = payloadKey(v.Record, out)
	case *UpdateRecord:
		out = payloadKey(v.Record, out)
	case *SoftDeleteRecord:
		out = append(out, Key{Kind: v.Entity, ID: v.ID})
	case *RestoreRecord:
		out = append(out, Key{Kind: v.Entity, ID: v.ID})
	case *SettleTotal:
		out = settlementKeys(&v.Settlement, out)
	case *SettleDirect:
		out = settlementKeys(&v.Settlement, out)
	case *TransferFunds:
		out = payloadKey(v.Debit, out)
		out = payloadKey(v.Credit, out)
	case *SetInitialBalances:
		out = append(out, openingKey)
		for i := range v.Stocks {
			out = append(out, keyOf(&v.Stocks[i]))
		}
		for i := range v.Balances {
			out = append(out, keyOf(&v.Balances[i]))
		}
	case *DeleteCategory:
		out = append(out, Key{Kind: models.EntityCategory, ID: v.ID})
	case *CreateLinkedStockTransaction:
		out = append(out, keyOf(&v.Stock))
		if v.Money != nil {
			out = payloadKey(*v.Money, out)
		}
		if v.Ledger != nil {
			out = append(out, keyOf(v.Ledger))
		}
	case *UpdateStockTransaction:
		out = append(out, keyOf(&v.Stock))
		if v.Money != nil {
			out = payloadKey(*v.Money, out)
		}
		if v.Ledger != nil {
			out = append(out, keyOf(v.Ledger))
		}
	case *BatchImport:
		for _, p := range v.Records {
			out = payloadKey(p, out)
		}
	}
	return out
}

// BookWide reports whether a changes rows it does not name.
func BookWide(a Action) bool {
	switch a.(type) {
	case *DeleteAll, *EmptyRecycleBin:
		return true
	}
	return false
}
