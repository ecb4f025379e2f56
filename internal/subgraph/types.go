package subgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"TroveDesk/internal/model"
)

// bigInt decodes GraphQL BigInt values, which arrive as strings or numbers.
type bigInt struct{ v *big.Int }

func (b *bigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		b.v = nil
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid BigInt %q", s)
	}
	b.v = v
	return nil
}

// Big returns the value, zero when absent.
func (b bigInt) Big() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.v)
}

func (b bigInt) Int64() int64 { return b.Big().Int64() }

func (b bigInt) Dnum() model.Dnum { return model.Dnum18(b.v) }

// flexInt decodes Int or BigInt fields into an int64.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(bytes.Trim(data, `"`), &n); err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*f = flexInt(v)
	return nil
}
