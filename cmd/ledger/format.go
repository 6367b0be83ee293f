package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/valuation"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatAmount renders d in the display currency, rounded to its minor unit.
func formatAmount(d decimal.Decimal, code string) string {
	cur := money.New(0, code).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

func printSummary(w io.Writer, s valuation.Summary, code string, banks map[models.RecordID]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Cash\t%s\n", formatAmount(s.CashBalance, code))
	fmt.Fprintf(tw, "Bank\t%s\n", formatAmount(s.BankBalance, code))

	ids := make([]models.RecordID, 0, len(s.BankBalances))
	for id := range s.BankBalances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		name := banks[id]
		if name == "" {
			name = id.String()
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, formatAmount(s.BankBalances[id], code))
	}

	fmt.Fprintf(tw, "Payables\t%s\n", formatAmount(s.TotalPayables, code))
	fmt.Fprintf(tw, "Receivables\t%s\n", formatAmount(s.TotalReceivables, code))
	if !s.AdvanceCredit.IsZero() {
		fmt.Fprintf(tw, "Advances\t%s\n", formatAmount(s.AdvanceCredit, code))
	}
	fmt.Fprintf(tw, "Stock value\t%s\n", formatAmount(s.StockValue, code))
	tw.Flush()

	if len(s.Stock) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tWEIGHT (kg)\tAVG PRICE/kg\tVALUE")
	for _, it := range s.Stock {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Name, it.Weight.StringFixed(2), formatAmount(it.AvgPrice, code), formatAmount(it.TotalValue, code))
	}
	tw.Flush()
}

func printQueue(w io.Writer, entries []models.OutboxEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tENQUEUED\tATTEMPTS\tLAST ERROR")
	for _, e := range entries {
		lastErr := ""
		if e.LastError != nil {
			lastErr = *e.LastError
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.ActionTag, e.EnqueuedAt.Format("2006-01-02 15:04:05"), e.Attempts, lastErr)
	}
	tw.Flush()
}
