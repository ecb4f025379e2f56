package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"TroveDesk/internal/model"

	"github.com/shopspring/decimal"
)

// PartialPolicy decides what happens when the oracle omits an asset.
type PartialPolicy string

const (
	// PolicyZeroFill reports missing assets as "0".
	PolicyZeroFill PartialPolicy = "zero_fill"
	// PolicyStrict fails the whole fetch when any asset is missing.
	PolicyStrict PartialPolicy = "strict"
)

// ParsePartialPolicy accepts zero_fill (default when empty) or strict.
func ParsePartialPolicy(s string) (PartialPolicy, error) {
	switch PartialPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyZeroFill:
		return PolicyZeroFill, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown partial policy %q", s)
}

// Oracle ids queried for the collateral assets.
const (
	idGnosis       = "gnosis"
	idSavingsXDAI  = "savings-xdai"
	idWrappedBTC   = "wrapped-bitcoin"
	idStakewiseGNO = "stakewise-staked-gno-2"
)

// AssetIDs is the ordered id list sent upstream.
var AssetIDs = []string{idGnosis, idSavingsXDAI, idWrappedBTC, idStakewiseGNO}

// VsCurrency is the quote currency.
const VsCurrency = "usd"

// PeggedPrice is reported for the stable assets regardless of oracle data.
const PeggedPrice = "1"

// ParseSimplePrice validates a simple-price body and assembles the PriceSet.
func ParseSimplePrice(body []byte, policy PartialPolicy) (model.PriceSet, error) {
	var root map[string]json.RawMessage
	if err := decodeStrictObject(body, &root); err != nil {
		return model.PriceSet{}, &ValidationError{Reason: "body is not a JSON object"}
	}

	quotes := make(map[string]string, len(AssetIDs))
	for _, id := range AssetIDs {
		raw, ok := root[id]
		if !ok {
			continue
		}
		price, err := parseQuote(id, raw)
		if err != nil {
			return model.PriceSet{}, err
		}
		quotes[id] = price
	}

	get := func(id string) (string, error) {
		if v, ok := quotes[id]; ok {
			return v, nil
		}
		if policy == PolicyStrict {
			return "", &ValidationError{Field: id, Reason: "missing"}
		}
		return "0", nil
	}

	set := model.PriceSet{EVRO: PeggedPrice, WXDAI: PeggedPrice}
	var err error
	if set.GNO, err = get(idGnosis); err != nil {
		return model.PriceSet{}, err
	}
	if set.SDAI, err = get(idSavingsXDAI); err != nil {
		return model.PriceSet{}, err
	}
	if set.WWBTC, err = get(idWrappedBTC); err != nil {
		return model.PriceSet{}, err
	}
	if set.OSGNO, err = get(idStakewiseGNO); err != nil {
		return model.PriceSet{}, err
	}
	return set, nil
}

func parseQuote(id string, raw json.RawMessage) (string, error) {
	var quote map[string]json.RawMessage
	if err := decodeStrictObject(raw, &quote); err != nil {
		return "", &ValidationError{Field: id, Reason: "expected an object"}
	}
	usd, ok := quote[VsCurrency]
	if !ok {
		return "", &ValidationError{Field: id + "." + VsCurrency, Reason: "required"}
	}
	dec := json.NewDecoder(bytes.NewReader(usd))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", &ValidationError{Field: id + "." + VsCurrency, Reason: "expected a number"}
	}
	num, ok := v.(json.Number)
	if !ok {
		return "", &ValidationError{Field: id + "." + VsCurrency, Reason: "expected a number"}
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return "", &ValidationError{Field: id + "." + VsCurrency, Reason: "expected a number"}
	}
	return d.String(), nil
}

// decodeStrictObject rejects null and non-object JSON values.
func decodeStrictObject(raw []byte, dst *map[string]json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("not an object")
	}
	return json.Unmarshal(trimmed, dst)
}
