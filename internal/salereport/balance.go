package salereport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Balance is an opening balance on the wire: a number, or "-" when the
// branch has no earlier report.
type Balance struct {
	Value float64
	Valid bool
}

func BalanceOf(p *float64) Balance {
	if p == nil {
		return Balance{}
	}
	return Balance{Value: *p, Valid: true}
}

func (b Balance) Ptr() *float64 {
	if !b.Valid {
		return nil
	}
	v := b.Value
	return &v
}

// Numeric is the value used in arithmetic; "-" counts as 0.
func (b Balance) Numeric() float64 {
	if !b.Valid {
		return 0
	}
	return b.Value
}

func (b Balance) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte(`"-"`), nil
	}
	return json.Marshal(b.Value)
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = Balance{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "-" {
			*b = Balance{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*b = Balance{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Balance{Value: v, Valid: true}
	return nil
}

// Derived holds the computed columns of a report row.
type Derived struct {
	Total  float64
	Total2 float64
	CB     float64
}

// Derive computes total = ob + received, total2 = con + others + com and
// cb = total - total2 in decimal arithmetic.
func Derive(ob Balance, received, con, others, com float64) Derived {
	total := decimal.NewFromFloat(ob.Numeric()).Add(decimal.NewFromFloat(received))
	total2 := decimal.NewFromFloat(con).Add(decimal.NewFromFloat(others)).Add(decimal.NewFromFloat(com))
	return Derived{
		Total:  total.InexactFloat64(),
		Total2: total2.InexactFloat64(),
		CB:     total.Sub(total2).InexactFloat64(),
	}
}

// CBDisplay renders non-positive closing balances as "-".
func CBDisplay(cb float64) string {
	if cb <= 0 {
		return "-"
	}
	return strconv.FormatFloat(cb, 'f', -1, 64)
}
