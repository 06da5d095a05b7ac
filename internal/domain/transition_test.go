package domain

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{StatusPending, StatusSuccess, StatusRejected, StatusCancelled, StatusFailed}

func TestDepositTransitionEffect(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			effect, err := Transition{Type: TypeDeposit, From: from, To: to}.Effect()
			require.NoError(t, err)

			switch {
			case from != StatusSuccess && to == StatusSuccess:
				assert.Equal(t, EffectCredit, effect, "%s -> %s", from, to)
			case from == StatusSuccess && to != StatusSuccess:
				assert.Equal(t, EffectDebit, effect, "%s -> %s", from, to)
			default:
				assert.Equal(t, EffectNone, effect, "%s -> %s", from, to)
			}
		}
	}
}

func TestWithdrawalTransitionEffect(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			effect, err := Transition{Type: TypeWithdrawal, From: from, To: to}.Effect()
			require.NoError(t, err)

			switch {
			case !IsRefunded(from) && IsRefunded(to):
				assert.Equal(t, EffectCredit, effect, "%s -> %s", from, to)
			case IsRefunded(from) && !IsRefunded(to):
				assert.Equal(t, EffectDebit, effect, "%s -> %s", from, to)
			default:
				assert.Equal(t, EffectNone, effect, "%s -> %s", from, to)
			}
		}
	}
}

func TestTransferHasNoTransitions(t *testing.T) {
	_, err := Transition{Type: TypeTransfer, From: StatusSuccess, To: StatusRejected}.Effect()
	assert.Error(t, err)
}

func TestIsRefunded(t *testing.T) {
	assert.True(t, IsRefunded(StatusRejected))
	assert.True(t, IsRefunded(StatusCancelled))
	assert.True(t, IsRefunded(StatusFailed))
	assert.False(t, IsRefunded(StatusPending))
	assert.False(t, IsRefunded(StatusSuccess))
}

func TestDelta(t *testing.T) {
	amount := decimal.NewFromInt(500000)

	d, err := Transition{Type: TypeDeposit, From: StatusPending, To: StatusSuccess}.Delta(amount)
	require.NoError(t, err)
	assert.True(t, d.Equal(amount))

	d, err = Transition{Type: TypeDeposit, From: StatusSuccess, To: StatusRejected}.Delta(amount)
	require.NoError(t, err)
	assert.True(t, d.Equal(amount.Neg()))

	d, err = Transition{Type: TypeWithdrawal, From: StatusPending, To: StatusSuccess}.Delta(amount)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

// walk applies a random status sequence and returns the accumulated delta.
func walk(t *testing.T, rng *rand.Rand, txType Type, amount decimal.Decimal) (decimal.Decimal, Status) {
	t.Helper()
	current := StatusPending
	total := decimal.Zero
	steps := 1 + rng.Intn(12)
	for i := 0; i < steps; i++ {
		next := allStatuses[rng.Intn(len(allStatuses))]
		if next == current {
			continue
		}
		d, err := Transition{Type: txType, From: current, To: next}.Delta(amount)
		require.NoError(t, err)
		total = total.Add(d)
		current = next
	}
	return total, current
}

func TestDepositCreditedOnceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	amount := decimal.NewFromInt(500000)

	for i := 0; i < 500; i++ {
		total, final := walk(t, rng, TypeDeposit, amount)
		if final == StatusSuccess {
			assert.True(t, total.Equal(amount), "ended in SUCCESS with total %s", total)
		} else {
			assert.True(t, total.IsZero(), "ended in %s with total %s", final, total)
		}
	}
}

func TestWithdrawalConservationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	amount := decimal.NewFromInt(200000)

	for i := 0; i < 500; i++ {
		total, final := walk(t, rng, TypeWithdrawal, amount)
		net := amount.Neg().Add(total)
		if IsRefunded(final) {
			assert.True(t, net.IsZero(), "ended in %s with net %s", final, net)
		} else {
			assert.True(t, net.Equal(amount.Neg()), "ended in %s with net %s", final, net)
		}
	}
}

func TestTransitionMessage(t *testing.T) {
	tx := &Transaction{ID: uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"), Amount: decimal.NewFromInt(1000)}

	cases := []struct {
		name string
		tr   Transition
		want string
	}{
		{"deposit success", Transition{TypeDeposit, StatusPending, StatusSuccess}, "Deposit succeeded: 1000.00 has been credited to your balance."},
		{"deposit rejected", Transition{TypeDeposit, StatusPending, StatusRejected}, "Deposit rejected: your deposit request of 1000.00 was not approved."},
		{"deposit reversal", Transition{TypeDeposit, StatusSuccess, StatusRejected}, "Deposit corrected: status changed to REJECTED, 1000.00 has been deducted from your balance."},
		{"withdrawal success", Transition{TypeWithdrawal, StatusPending, StatusSuccess}, "Withdrawal completed: 1000.00 has been sent to your destination account."},
		{"withdrawal rejected", Transition{TypeWithdrawal, StatusPending, StatusRejected}, "Withdrawal refunded: 1000.00 has been returned to your balance."},
		{"withdrawal cancelled", Transition{TypeWithdrawal, StatusPending, StatusCancelled}, "Withdrawal refunded: 1000.00 has been returned to your balance."},
		{"withdrawal failed", Transition{TypeWithdrawal, StatusPending, StatusFailed}, "Transaction #0f8fad5b status updated to FAILED."},
		{"deposit back to pending", Transition{TypeDeposit, StatusRejected, StatusPending}, "Transaction #0f8fad5b status updated to PENDING."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tx.Type = c.tr.Type
			assert.Equal(t, c.want, c.tr.Message(tx))
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("REJECTED")
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, s)

	_, ok = ParseStatus("rejected")
	assert.False(t, ok)
}
