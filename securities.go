package taxlot

import (
	"slices"
	"sync"
)

// identicalSecurities lists securities the IRS is likely to treat as
// substantially identical, typically funds tracking the same index from
// different issuers. The table is one-directional; lookups go through
// identicalIndex which adds the reverse direction.
var identicalSecurities = map[string][]string{
	// S&P 500
	"VOO": {"IVV", "SPY", "SPLG", "VFIAX", "FXAIX", "SWPPX"},
	// US total market
	"VTI": {"ITOT", "SCHB", "VTSAX", "FSKAX"},
	// Nasdaq 100
	"QQQ": {"QQQM"},
	// total international
	"VXUS": {"IXUS", "VTIAX"},
	// developed markets
	"VEA": {"IEFA", "SCHF"},
	// emerging markets
	"VWO": {"IEMG", "SCHE"},
	// US aggregate bonds
	"BND": {"AGG", "SCHZ", "VBTLX"},
	// S&P 400
	"IJH": {"MDY", "IVOO", "SPMD"},
	// Russell 2000
	"IWM": {"VTWO"},
	// gold
	"GLD": {"IAU", "GLDM", "SGOL"},
}

// substituteSecurities suggests similar but not substantially identical
// exposures to keep market exposure while a harvested loss stays deductible.
var substituteSecurities = map[string][]string{
	"VOO":  {"VTI", "SCHX", "IWB"},
	"VTI":  {"SCHX", "IWB", "VV"},
	"QQQ":  {"VGT", "XLK", "ONEQ"},
	"VXUS": {"VEU", "ACWX"},
	"VEA":  {"SPDW", "EFA"},
	"VWO":  {"EEM", "SPEM"},
	"BND":  {"BIV", "IUSB"},
	"IJH":  {"VO", "SCHM"},
	"IWM":  {"VB", "SCHA"},
	"GLD":  {"BAR", "AAAU"},
}

// identicalIndex is the symmetric closure of identicalSecurities.
var identicalIndex = sync.OnceValue(func() map[string][]string {
	index := make(map[string][]string)
	for sym, peers := range identicalSecurities {
		for _, p := range peers {
			index[sym] = append(index[sym], p)
			index[p] = append(index[p], sym)
		}
	}
	for sym, peers := range index {
		slices.Sort(peers)
		index[sym] = slices.Compact(peers)
	}
	return index
})

// IdenticalSecurities returns symbol followed by the securities considered
// substantially identical to it, sorted. The relation is symmetric: if the
// table lists B for A, then looking up B returns A.
func IdenticalSecurities(symbol string) []string {
	symbol = NormalizeSymbol(symbol)
	res := []string{symbol}
	for _, p := range identicalIndex()[symbol] {
		if p != symbol {
			res = append(res, p)
		}
	}
	return res
}

// AreSubstantiallyIdentical reports whether a and b are the same security or
// listed as substantially identical.
func AreSubstantiallyIdentical(a, b string) bool {
	a, b = NormalizeSymbol(a), NormalizeSymbol(b)
	return a == b || slices.Contains(identicalIndex()[a], b)
}

// SubstituteSecurities returns advisory replacements for symbol. When the
// symbol has no entry of its own, the entry of an identical peer is used.
// Securities identical to symbol are never suggested.
func SubstituteSecurities(symbol string) []string {
	symbol = NormalizeSymbol(symbol)
	subs, ok := substituteSecurities[symbol]
	if !ok {
		for _, peer := range IdenticalSecurities(symbol)[1:] {
			if subs, ok = substituteSecurities[peer]; ok {
				break
			}
		}
	}
	var res []string
	for _, s := range subs {
		if !AreSubstantiallyIdentical(symbol, s) {
			res = append(res, s)
		}
	}
	return res
}
