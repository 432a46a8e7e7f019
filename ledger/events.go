/*
events.go - Low-balance notification hook

The notifier observes ledger writes and fires when a balance crosses the
configured low-balance threshold from above. Delivery is fire-and-forget on a
separate goroutine: a slow or failing subscriber must never delay or roll
back a ledger write.
*/
package ledger

import (
	"log"

	"github.com/jfemon8/Meal-Management-sub005/core"
)

// LowBalanceEvent is delivered when a balance drops below the threshold.
type LowBalanceEvent struct {
	UserID      core.UserID
	UserName    string
	BalanceType BalanceType
	Balance     core.Money
	Threshold   core.Money
}

// Subscriber receives low-balance events. Implementations must be safe to
// call from multiple goroutines.
type Subscriber interface {
	LowBalance(event LowBalanceEvent)
}

// Notifier fans low-balance events out to subscribers.
type Notifier struct {
	threshold   core.Money
	subscribers []Subscriber
}

func NewNotifier(threshold core.Money) *Notifier {
	return &Notifier{threshold: threshold}
}

func (n *Notifier) Subscribe(s Subscriber) {
	n.subscribers = append(n.subscribers, s)
}

// BalanceChanged fires when the balance crosses the threshold from above.
// Crossing is edge-triggered so a deeply negative balance does not spam a
// notification per transaction.
func (n *Notifier) BalanceChanged(user *core.User, balanceType BalanceType, previous, next core.Money) {
	if next.GreaterThan(n.threshold) || next.Equal(n.threshold) {
		return
	}
	if previous.LessThan(n.threshold) {
		return // already below before this write
	}

	event := LowBalanceEvent{
		UserID:      user.ID,
		UserName:    user.Name,
		BalanceType: balanceType,
		Balance:     next,
		Threshold:   n.threshold,
	}
	for _, s := range n.subscribers {
		sub := s
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Notifier] subscriber panic: %v", r)
				}
			}()
			sub.LowBalance(event)
		}()
	}
}
