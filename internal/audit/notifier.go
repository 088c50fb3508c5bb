package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Audit actions consumed by the back-office audit trail.
const (
	ActionCreateLoan = "CREATE_LOAN"
	ActionEmiPost    = "EMI_POST"
)

// Event is the record handed to the audit trail collaborator.
type Event struct {
	Action           string          `json:"action"`
	LoanID           string          `json:"loan_id"`
	CustomerID       string          `json:"customer_id,omitempty"`
	Amount           decimal.Decimal `json:"amount,omitempty"`
	PrincipalPortion decimal.Decimal `json:"principal_portion,omitempty"`
	InterestPortion  decimal.Decimal `json:"interest_portion,omitempty"`
	OperatorID       string          `json:"operator_id"`
	Timestamp        time.Time       `json:"timestamp"`
}

// Notifier delivers audit events to the external audit trail. Delivery is
// best-effort: a failed publish never unwinds a committed ledger write.
type Notifier interface {
	LoanCreated(ctx context.Context, loanID, customerID string, amount decimal.Decimal, operatorID string)
	EmiPosted(ctx context.Context, loanID string, principalPortion, interestPortion decimal.Decimal, operatorID string)
}

// RedisNotifier publishes audit events as JSON on a redis channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) LoanCreated(ctx context.Context, loanID, customerID string, amount decimal.Decimal, operatorID string) {
	n.publish(ctx, Event{
		Action:     ActionCreateLoan,
		LoanID:     loanID,
		CustomerID: customerID,
		Amount:     amount,
		OperatorID: operatorID,
		Timestamp:  time.Now(),
	})
}

func (n *RedisNotifier) EmiPosted(ctx context.Context, loanID string, principalPortion, interestPortion decimal.Decimal, operatorID string) {
	n.publish(ctx, Event{
		Action:           ActionEmiPost,
		LoanID:           loanID,
		PrincipalPortion: principalPortion,
		InterestPortion:  interestPortion,
		OperatorID:       operatorID,
		Timestamp:        time.Now(),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("audit: marshal %s event for loan %s: %v", event.Action, event.LoanID, err)
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		log.Printf("audit: publish %s event for loan %s: %v", event.Action, event.LoanID, err)
	}
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) LoanCreated(context.Context, string, string, decimal.Decimal, string) {}

func (NopNotifier) EmiPosted(context.Context, string, decimal.Decimal, decimal.Decimal, string) {}
