package domain

import "strconv"

// BankruptcyStatus is the Fedresurs registry verdict for one INN.
type BankruptcyStatus int

const (
	BankruptcyNotFound    BankruptcyStatus = 0
	BankruptcyNone        BankruptcyStatus = 1
	BankruptcyObservation BankruptcyStatus = 2
	BankruptcyCompetitive BankruptcyStatus = 3
	BankruptcyTerminated  BankruptcyStatus = 4
)

// Code renders the status as the numeric code used in output tables.
func (s BankruptcyStatus) Code() string {
	return strconv.Itoa(int(s))
}

func (s BankruptcyStatus) String() string {
	switch s {
	case BankruptcyNotFound:
		return "not found"
	case BankruptcyNone:
		return "no proceedings"
	case BankruptcyObservation:
		return "observation"
	case BankruptcyCompetitive:
		return "competitive proceedings"
	case BankruptcyTerminated:
		return "proceedings terminated"
	default:
		return "unknown"
	}
}
