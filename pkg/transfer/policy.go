package transfer

import "github.com/chris/campus-ledger/pkg/models"

// Stage is a step of the transfer pipeline. Stages complete in the order
// they are declared.
type Stage string

const (
	StageRequested          Stage = "requested"
	StageIdentitiesResolved Stage = "identities_resolved"
	StageAuthorized         Stage = "authorized"
	StageRecorded           Stage = "recorded"
	StageIndexed            Stage = "indexed"
	StageSettled            Stage = "settled"
)

// settlementPolicy says how a transfer type moves value.
type settlementPolicy struct {
	// debitSender removes the amount from the sender.
	debitSender bool
	// checkSolvency rejects the transfer up front if the sender cannot cover it.
	checkSolvency bool
	// allowCard lets the sender be identified by card number.
	allowCard bool
}

// policies is the single source of truth for per-type settlement. Every
// type credits the receiver.
var policies = map[models.TransactionType]settlementPolicy{
	models.CASHIN:  {},
	models.PAYMENT: {debitSender: true, checkSolvency: true, allowCard: true},
	models.SEND:    {debitSender: true, checkSolvency: true},
}

func policyFor(t models.TransactionType) (settlementPolicy, bool) {
	p, ok := policies[t]
	return p, ok
}

// Legs returns the settlement legs a transfer of type t applies, in order.
func Legs(t models.TransactionType) []models.Leg {
	p, ok := policyFor(t)
	if !ok {
		return nil
	}
	if p.debitSender {
		return []models.Leg{models.LegDebit, models.LegCredit}
	}
	return []models.Leg{models.LegCredit}
}
