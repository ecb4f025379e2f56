package model

// PriceSet is the price record served to the UI. All six symbols are always present.
type PriceSet struct {
	EVRO  string `json:"EVRO"`
	WXDAI string `json:"WXDAI"`
	GNO   string `json:"GNO"`
	SDAI  string `json:"SDAI"`
	WWBTC string `json:"WWBTC"`
	OSGNO string `json:"OSGNO"`
}

// Get returns the price for a symbol and whether the symbol is known.
func (p PriceSet) Get(symbol string) (string, bool) {
	switch symbol {
	case "EVRO":
		return p.EVRO, true
	case "WXDAI":
		return p.WXDAI, true
	case "GNO":
		return p.GNO, true
	case "SDAI":
		return p.SDAI, true
	case "WWBTC":
		return p.WWBTC, true
	case "OSGNO":
		return p.OSGNO, true
	}
	return "", false
}

// Symbols lists the keys of a PriceSet in display order.
func (p PriceSet) Symbols() []string {
	return []string{"EVRO", "WXDAI", "GNO", "SDAI", "WWBTC", "OSGNO"}
}
