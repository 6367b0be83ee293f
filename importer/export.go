package importer

import (
	"context"
	"io"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"github.com/xuri/excelize/v2"
)

const exportDate = "2006-01-02"

// Export writes the active contacts, bank accounts, standalone money rows and stock movements
// in the import layout. Rows created by a stock movement, settlement or advance are left out:
// re-importing the stock row recreates its payment, and settlements are not importable.
func Export(ctx context.Context, s *store.Store, w io.Writer) error {
	contacts, err := store.List[models.Contact](ctx, s, store.Active(), store.OrderBy("created_at ASC"))
	if err != nil {
		return err
	}
	banks, err := store.List[models.BankAccount](ctx, s, store.Active(), store.OrderBy("created_at ASC"))
	if err != nil {
		return err
	}
	cash, err := store.List[models.CashTransaction](ctx, s, store.Active(), store.Chronological())
	if err != nil {
		return err
	}
	bank, err := store.List[models.BankTransaction](ctx, s, store.Active(), store.Chronological())
	if err != nil {
		return err
	}
	stock, err := store.List[models.StockTransaction](ctx, s, store.Active(), store.Chronological())
	if err != nil {
		return err
	}

	contactNames := make(map[models.RecordID]string, len(contacts))
	for _, c := range contacts {
		contactNames[c.ID] = c.Name
	}
	bankNames := make(map[models.RecordID]string, len(banks))
	for _, b := range banks {
		bankNames[b.ID] = b.Name
	}

	rows := map[string][][]any{}
	for _, c := range contacts {
		rows[SheetContacts] = append(rows[SheetContacts], []any{c.Name, c.Phone, string(c.Type)})
	}
	for _, b := range banks {
		rows[SheetBanks] = append(rows[SheetBanks], []any{b.Name, b.AccountNumber})
	}
	for _, t := range cash {
		if standalone(t.MonetaryTransaction) {
			rows[SheetCash] = append(rows[SheetCash], []any{
				t.Date.Format(exportDate), string(t.Type), t.ExpectedAmount.String(), actual(t.MonetaryTransaction),
				t.VarianceReason, t.Category, t.Description, contactNames[t.ContactId],
			})
		}
	}
	for _, t := range bank {
		if standalone(t.MonetaryTransaction) {
			rows[SheetBank] = append(rows[SheetBank], []any{
				t.Date.Format(exportDate), string(t.Type), bankNames[t.BankId], t.ExpectedAmount.String(), actual(t.MonetaryTransaction),
				t.VarianceReason, t.Category, t.Description, contactNames[t.ContactId],
			})
		}
	}
	for _, t := range stock {
		override := ""
		if !t.ActualAmount.Equal(t.ExpectedAmount) {
			override = t.ActualAmount.String()
		}
		rows[SheetStock] = append(rows[SheetStock], []any{
			t.Date.Format(exportDate), t.ItemName, string(t.Type), t.Weight.String(), t.PricePerKg.String(),
			string(t.PaymentMethod), contactNames[t.ContactId], bankNames[t.BankId], override, t.VarianceReason, t.Description,
		})
	}
	return writeWorkbook(w, rows)
}

// standalone reports whether a money row was entered on its own rather than derived.
func standalone(t models.MonetaryTransaction) bool {
	return t.LinkedStockTxId.IsZero() && t.LinkedLedgerId.IsZero() && t.AdvanceId.IsZero() && t.CounterpartId.IsZero()
}

func actual(t models.MonetaryTransaction) string {
	if t.ActualAmount.Equal(t.ExpectedAmount) {
		return ""
	}
	return t.ActualAmount.String()
}

func writeWorkbook(w io.Writer, rows map[string][][]any) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, sheet := range sheetOrder {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		header := make([]any, len(Headers[sheet]))
		for col, h := range Headers[sheet] {
			header[col] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		for r, values := range rows[sheet] {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
