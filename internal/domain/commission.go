package domain

import "time"

// CommissionStatus represents the payout state of an agent commission
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

func (s CommissionStatus) String() string {
	return string(s)
}

// Agent is the identity-subsystem read model for a booking agent.
type Agent struct {
	ID             string  `json:"id"`
	CommissionRate float64 `json:"commission_rate"`
}

// AgentCommission records the commission earned by an agent on one booking.
// The rate is snapshotted at booking time so later rate changes do not affect
// already-earned commissions. Cancelled in lockstep with booking cancellation.
type AgentCommission struct {
	ID               string           `json:"id"`
	AgentID          string           `json:"agent_id"`
	BookingID        string           `json:"booking_id"`
	BookingAmount    float64          `json:"booking_amount"`
	CommissionRate   float64          `json:"commission_rate"`
	CommissionAmount float64          `json:"commission_amount"`
	Status           CommissionStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewAgentCommission builds a commission row for a booking with the agent's
// current rate snapshotted.
func NewAgentCommission(agent *Agent, bookingID string, bookingAmount float64, now time.Time) *AgentCommission {
	return &AgentCommission{
		AgentID:          agent.ID,
		BookingID:        bookingID,
		BookingAmount:    bookingAmount,
		CommissionRate:   agent.CommissionRate,
		CommissionAmount: Round2(bookingAmount * agent.CommissionRate / 100),
		Status:           CommissionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
