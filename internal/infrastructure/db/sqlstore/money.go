package sqlstore

import (
	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// cents is a money amount in integer minor units. Balance arithmetic runs
// in SQL on these columns, and SQLite has no exact decimal type.
type cents int64

// toCents expects an amount already validated to domain.MoneyPlaces.
func toCents(d decimal.Decimal) cents {
	return cents(d.Shift(domain.MoneyPlaces).Round(0).IntPart())
}

func (c cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -domain.MoneyPlaces)
}
