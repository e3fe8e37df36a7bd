package reservation

import (
	"fmt"
	"strings"
)

// Policy decides what a repeated Reserve of the same product does to the
// basket. The stock side is identical for both: it drops by the requested
// amount.
type Policy string

const (
	// MergePolicy adds the requested amount to what the user already holds,
	// so stock plus basket stays constant.
	MergePolicy Policy = "merge"
	// ReplacePolicy overwrites the held amount with the requested one. Units
	// held before the call stay out of stock without being in any basket.
	ReplacePolicy Policy = "replace"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case MergePolicy, ReplacePolicy:
		return p, nil
	case "":
		return MergePolicy, nil
	default:
		return "", fmt.Errorf("unknown reserve policy %q", s)
	}
}

type Action string

const (
	ActionReserved Action = "reserved"
	ActionReleased Action = "released"
	ActionAdjusted Action = "adjusted"
	ActionCleared  Action = "cleared"
)

// Line describes one product touched by an operation. Held is the basket
// quantity afterwards; StockDelta is the change applied to available stock
// (negative when units moved into the basket).
type Line struct {
	ProductID  string `json:"productId"`
	Held       int    `json:"held"`
	StockDelta int    `json:"stockDelta"`
}

// Change is emitted after a committed operation that moved stock.
type Change struct {
	UserID string
	Action Action
	Lines  []Line
}

type ReserveResult struct {
	ProductID string `json:"productId"`
	Held      int    `json:"held"`
	Reserved  int    `json:"reserved"`
}

type AdjustResult struct {
	ProductID  string `json:"productId"`
	Held       int    `json:"held"`
	StockDelta int    `json:"stockDelta"`
}

type ClearResult struct {
	Restored []Line `json:"restored"`
}
