// Package loanview derives the loan screen state from its three inputs.
package loanview

// State is the view state of the loan screen.
type State string

const (
	StateLoading  State = "loading"
	StateError    State = "error"
	StateNotFound State = "not-found"
	StateSuccess  State = "success"
)

// Status is the lifecycle of one input fetch.
type Status string

const (
	StatusPending Status = "pending"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// Presence tells whether a fetch produced data, and whether that data is null.
type Presence int

const (
	DataUndefined Presence = iota
	DataNull
	DataPresent
)

// Query is the observable state of one input.
type Query struct {
	Status   Status
	Fetching bool
	Data     Presence
}

// Resolved is a settled fetch that returned a value.
func Resolved() Query { return Query{Status: StatusSuccess, Data: DataPresent} }

// ResolvedNull is a settled fetch that returned null.
func ResolvedNull() Query { return Query{Status: StatusSuccess, Data: DataNull} }

// Failed is a settled fetch that errored.
func Failed() Query { return Query{Status: StatusError} }

// Pending is a fetch that has not produced anything yet.
func Pending() Query { return Query{Status: StatusPending, Fetching: true} }

// SurplusInput returns surplus when the loan is liquidated and a synthetic
// success otherwise, so surplus only weighs in for liquidated loans.
func SurplusInput(liquidated bool, surplus Query) Query {
	if liquidated {
		return surplus
	}
	return Query{Status: StatusSuccess}
}

// Derive computes the view state. Rules apply in order:
// pending inputs give loading, then errors give error, then a null loan
// gives not-found, then a loan gives success, and anything else is an error.
func Derive(loan, price, surplus Query) State {
	switch {
	case price.Data != DataPresent && price.Status != StatusError,
		loan.Status == StatusPending,
		loan.Fetching && loan.Data == DataNull,
		surplus.Status == StatusPending,
		surplus.Fetching && surplus.Data == DataUndefined:
		return StateLoading
	case loan.Status == StatusError,
		surplus.Status == StatusError,
		price.Status == StatusError:
		return StateError
	case loan.Data == DataNull:
		return StateNotFound
	case loan.Data == DataPresent:
		return StateSuccess
	default:
		return StateError
	}
}
