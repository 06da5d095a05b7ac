package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Effect is what a status transition does to the owner's balance.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCredit adds the transaction amount.
	EffectCredit
	// EffectDebit subtracts the transaction amount.
	EffectDebit
)

func (e Effect) String() string {
	switch e {
	case EffectCredit:
		return "credit"
	case EffectDebit:
		return "debit"
	default:
		return "none"
	}
}

// IsRefunded reports whether a withdrawal in status s has had its reserved
// funds returned to the balance.
func IsRefunded(s Status) bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// IsRealized reports whether a deposit in status s has been credited.
func IsRealized(s Status) bool {
	return s == StatusSuccess
}

// Transition is a status change of one transaction type.
type Transition struct {
	Type Type
	From Status
	To   Status
}

// Effect classifies the transition. Deposits hold funds only while in
// SUCCESS; withdrawals hold a reservation while outside the refunded set.
// Both reduce to the same rule: compare whether the balance holds the funds
// before and after.
func (t Transition) Effect() (Effect, error) {
	var holdsBefore, holdsAfter bool
	switch t.Type {
	case TypeDeposit:
		holdsBefore, holdsAfter = IsRealized(t.From), IsRealized(t.To)
	case TypeWithdrawal:
		// The amount left the balance at creation; a refund puts it back.
		holdsBefore, holdsAfter = IsRefunded(t.From), IsRefunded(t.To)
	default:
		return EffectNone, fmt.Errorf("no status transitions for %s", t.Type)
	}

	switch {
	case !holdsBefore && holdsAfter:
		return EffectCredit, nil
	case holdsBefore && !holdsAfter:
		return EffectDebit, nil
	default:
		return EffectNone, nil
	}
}

// Delta returns the signed balance change for amount.
func (t Transition) Delta(amount decimal.Decimal) (decimal.Decimal, error) {
	effect, err := t.Effect()
	if err != nil {
		return decimal.Zero, err
	}
	switch effect {
	case EffectCredit:
		return amount, nil
	case EffectDebit:
		return amount.Neg(), nil
	default:
		return decimal.Zero, nil
	}
}

// Message is the text sent to the owner once the transition is committed.
func (t Transition) Message(tx *Transaction) string {
	amount := tx.Amount.StringFixed(2)
	switch t.Type {
	case TypeDeposit:
		switch {
		case t.To == StatusSuccess:
			return fmt.Sprintf("Deposit succeeded: %s has been credited to your balance.", amount)
		case t.From == StatusSuccess:
			return fmt.Sprintf("Deposit corrected: status changed to %s, %s has been deducted from your balance.", t.To, amount)
		case t.To == StatusRejected:
			return fmt.Sprintf("Deposit rejected: your deposit request of %s was not approved.", amount)
		}
	case TypeWithdrawal:
		switch t.To {
		case StatusSuccess:
			return fmt.Sprintf("Withdrawal completed: %s has been sent to your destination account.", amount)
		case StatusRejected, StatusCancelled:
			return fmt.Sprintf("Withdrawal refunded: %s has been returned to your balance.", amount)
		}
	}
	return fmt.Sprintf("Transaction #%s status updated to %s.", shortID(tx), t.To)
}

func shortID(tx *Transaction) string {
	id := tx.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
