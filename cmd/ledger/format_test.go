package main

import (
	"bytes"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"bitbucket.org/mmdatafocus/tradebooks/valuation"
	"github.com/shopspring/decimal"
)

func TestFormatAmountRoundsToMinorUnit(t *testing.T) {
	got := formatAmount(decimal.RequireFromString("1200.505"), "USD")
	if got != "$1,200.51" {
		t.Fatalf("formatAmount = %q", got)
	}
	if got := formatAmount(decimal.RequireFromString("-3"), "USD"); got != "-$3.00" {
		t.Fatalf("negative formatAmount = %q", got)
	}
}

func TestOpeningFlags(t *testing.T) {
	var banks bankOpenings
	if err := banks.Set("12=1,500"); err != nil {
		t.Fatalf("set bank: %v", err)
	}
	if banks[0].BankId != models.RecordID("12") || !banks[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("bank opening %+v", banks[0])
	}
	if err := banks.Set("12"); err == nil {
		t.Fatalf("missing amount must fail")
	}

	var stocks stockOpenings
	if err := stocks.Set("rice:10@5.5"); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if stocks[0].ItemName != "rice" || !stocks[0].PricePerKg.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("stock opening %+v", stocks[0])
	}
	if err := stocks.Set("rice@5"); err == nil {
		t.Fatalf("missing weight must fail")
	}
}

func TestParseInputs(t *testing.T) {
	if _, err := parseDate("05/01/2024"); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := parseAmount("amount", "abc"); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if v, err := parseOptionalAmount("actual", ""); err != nil || v != nil {
		t.Fatalf("empty optional amount = %v, %v", v, err)
	}
	if _, err := parseKind("invoice"); err == nil {
		t.Fatalf("unknown kind must fail")
	}
	if k, err := parseKind(string(models.EntityStock)); err != nil || k != models.EntityStock {
		t.Fatalf("parseKind = %v, %v", k, err)
	}
}

func TestPrintSummaryNamesBanks(t *testing.T) {
	var buf bytes.Buffer
	s := valuation.Summary{
		CashBalance:  decimal.NewFromInt(10),
		BankBalances: map[models.RecordID]decimal.Decimal{"7": decimal.NewFromInt(40)},
		Stock:        []valuation.StockItem{{Name: "rice", Weight: decimal.NewFromInt(3), TotalValue: decimal.NewFromInt(15), AvgPrice: decimal.NewFromInt(5)}},
	}
	printSummary(&buf, s, "USD", map[models.RecordID]string{"7": "KBZ"})
	out := buf.String()
	for _, want := range []string{"KBZ", "$40.00", "rice", "3.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary output missing %q:\n%s", want, out)
		}
	}
}
