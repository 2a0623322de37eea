// README: Common money value object used across modules.
package types

import "fmt"

// Money is an amount in minor units (cents) of Currency.
type Money struct {
	Amount   int64
	Currency string
}

func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

func (m Money) String() string {
	sign := ""
	a := m.Amount
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, a/100, a%100, m.Currency)
}
