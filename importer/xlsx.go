// Package importer reads a bulk-import workbook into a workflow.ImportBatch and writes the
// blank template users fill in.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetContacts = "Contacts"
	SheetBanks    = "Banks"
	SheetCash     = "Cash"
	SheetBank     = "Bank"
	SheetStock    = "Stock"
)

// Headers lists the columns of each sheet in template order. Columns are matched by header
// name, so users may reorder them.
var Headers = map[string][]string{
	SheetContacts: {"Name", "Phone", "Kind"},
	SheetBanks:    {"Name", "Account Number"},
	SheetCash:     {"Date", "Type", "Amount", "Actual Amount", "Variance Reason", "Category", "Description", "Contact"},
	SheetBank:     {"Date", "Type", "Bank", "Amount", "Actual Amount", "Variance Reason", "Category", "Description", "Contact"},
	SheetStock:    {"Date", "Item", "Type", "Weight", "Price Per Kg", "Payment Method", "Contact", "Bank", "Actual Amount", "Variance Reason", "Description"},
}

var sheetOrder = []string{SheetContacts, SheetBanks, SheetCash, SheetBank, SheetStock}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "01-02-06", "1/2/06 15:04", "2006-01-02 15:04:05"}

// ReadFile opens the workbook at path.
func ReadFile(path string) (*workflow.ImportBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// Read parses a workbook from r. Missing sheets are treated as empty; a malformed cell fails
// the whole workbook with its sheet and row.
func Read(r io.Reader) (*workflow.ImportBatch, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

func read(f *excelize.File) (*workflow.ImportBatch, error) {
	batch := &workflow.ImportBatch{}
	for _, sheet := range sheetOrder {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := columnIndex(rows[0])
		for idx, row := range rows[1:] {
			c := cells{sheet: sheet, row: idx + 2, cols: cols, values: row}
			if err := c.into(batch); err != nil {
				return nil, err
			}
		}
	}
	return batch, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalize(h)] = i
	}
	return cols
}

func normalize(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}

// cells reads one data row by header name and remembers the first parse error.
type cells struct {
	sheet  string
	row    int
	cols   map[string]int
	values []string
	err    error
}

func (c *cells) str(name string) string {
	i, ok := c.cols[normalize(name)]
	if !ok || i >= len(c.values) {
		return ""
	}
	return strings.TrimSpace(c.values[i])
}

func (c *cells) fail(column, format string, args ...any) {
	if c.err != nil {
		return
	}
	c.err = &utils.ValidationError{
		Message: fmt.Sprintf("%s row %d: %s", strings.ToLower(c.sheet), c.row, fmt.Sprintf(format, args...)),
		Fields:  map[string]string{column: "format"},
	}
}

func (c *cells) decimal(name string) decimal.Decimal {
	v := strings.ReplaceAll(c.str(name), ",", "")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		c.fail(name, "%q is not a number", v)
	}
	return d
}

func (c *cells) optionalDecimal(name string) *decimal.Decimal {
	if c.str(name) == "" {
		return nil
	}
	d := c.decimal(name)
	return &d
}

func (c *cells) date(name string) time.Time {
	v := c.str(name)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	// Unformatted date cells come through as Excel serial numbers.
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC()
		}
	}
	c.fail(name, "%q is not a date", v)
	return time.Time{}
}

func (c *cells) lower(name string) string {
	return strings.ToLower(c.str(name))
}

func (c *cells) empty() bool {
	for _, v := range c.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (c *cells) into(b *workflow.ImportBatch) error {
	switch c.sheet {
	case SheetContacts:
		// Contact rows are reported by position, so blank rows still count.
		b.Contacts = append(b.Contacts, workflow.ContactInput{
			Name:  c.str("Name"),
			Phone: utils.NormalizePhone(c.str("Phone")),
			Kind:  models.ContactKind(c.lower("Kind")),
		})
	case SheetBanks:
		b.BankAccounts = append(b.BankAccounts, workflow.BankAccountInput{
			Name:          c.str("Name"),
			AccountNumber: c.str("Account Number"),
		})
	case SheetCash, SheetBank:
		if c.empty() {
			return nil
		}
		in := workflow.ImportMoney{
			Row:         c.row,
			ContactName: c.str("Contact"),
			BankName:    c.str("Bank"),
			MoneyInput: workflow.MoneyInput{
				Date:           c.date("Date"),
				Type:           models.MonetaryType(c.lower("Type")),
				ExpectedAmount: c.decimal("Amount"),
				ActualAmount:   c.optionalDecimal("Actual Amount"),
				VarianceReason: c.str("Variance Reason"),
				Category:       c.str("Category"),
				Description:    c.str("Description"),
			},
		}
		if c.sheet == SheetCash {
			b.Cash = append(b.Cash, in)
		} else {
			b.Bank = append(b.Bank, in)
		}
	case SheetStock:
		if c.empty() {
			return nil
		}
		b.Stock = append(b.Stock, workflow.ImportStock{
			Row:         c.row,
			ContactName: c.str("Contact"),
			BankName:    c.str("Bank"),
			StockInput: workflow.StockInput{
				Date:           c.date("Date"),
				ItemName:       c.str("Item"),
				Type:           models.StockType(c.lower("Type")),
				Weight:         c.decimal("Weight"),
				PricePerKg:     c.decimal("Price Per Kg"),
				PaymentMethod:  models.PaymentMethod(c.lower("Payment Method")),
				ActualAmount:   c.optionalDecimal("Actual Amount"),
				VarianceReason: c.str("Variance Reason"),
				Description:    c.str("Description"),
			},
		})
	default:
		return errors.New("unknown sheet " + c.sheet)
	}
	return c.err
}

// WriteTemplate writes an empty workbook with every sheet and its header row.
func WriteTemplate(w io.Writer) error {
	return writeWorkbook(w, nil)
}
