package model

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTroveID is returned for identifiers not shaped "<branch>:0x<hex>".
var ErrInvalidTroveID = errors.New("invalid prefixed trove id")

var prefixedTroveIDPattern = regexp.MustCompile(`^[0-9]:0x[0-9a-f]+$`)

// PrefixedTroveID identifies a trove across branches.
type PrefixedTroveID struct {
	BranchID int
	TroveID  *big.Int
}

// String formats the id as "<branch>:0x<hex>".
func (p PrefixedTroveID) String() string {
	id := p.TroveID
	if id == nil {
		id = new(big.Int)
	}
	return fmt.Sprintf("%d:0x%s", p.BranchID, id.Text(16))
}

// IsPrefixedTroveID reports whether s is a well formed prefixed trove id.
func IsPrefixedTroveID(s string) bool {
	return prefixedTroveIDPattern.MatchString(s)
}

// ParsePrefixedTroveID parses "<branch>:0x<hex>".
func ParsePrefixedTroveID(s string) (PrefixedTroveID, error) {
	if !IsPrefixedTroveID(s) {
		return PrefixedTroveID{}, fmt.Errorf("%w: %q", ErrInvalidTroveID, s)
	}
	branch, hexID, _ := strings.Cut(s, ":")
	b, err := strconv.Atoi(branch)
	if err != nil {
		return PrefixedTroveID{}, fmt.Errorf("%w: %q", ErrInvalidTroveID, s)
	}
	id, ok := new(big.Int).SetString(strings.TrimPrefix(hexID, "0x"), 16)
	if !ok {
		return PrefixedTroveID{}, fmt.Errorf("%w: %q", ErrInvalidTroveID, s)
	}
	return PrefixedTroveID{BranchID: b, TroveID: id}, nil
}
