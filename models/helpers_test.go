package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testTime() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
