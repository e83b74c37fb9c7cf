package domain

// CancellationPolicyRule is one refund tier of a policy: bookings cancelled at
// least DaysBeforeTravel days out get RefundPercentage back minus FeeAmount.
type CancellationPolicyRule struct {
	ID               string  `json:"id"`
	PolicyID         string  `json:"cancellation_policy_id"`
	DaysBeforeTravel int     `json:"days_before_travel"`
	RefundPercentage float64 `json:"refund_percentage"`
	FeeAmount        float64 `json:"fee_amount"`
}

// CancellationPolicy owns an ordered set of refund rules. Exactly one policy
// is the system-wide default.
type CancellationPolicy struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	IsDefault bool                     `json:"is_default"`
	IsActive  bool                     `json:"is_active"`
	Rules     []CancellationPolicyRule `json:"rules,omitempty"`
}

// RefundQuote is the outcome of applying a cancellation policy to a booking.
type RefundQuote struct {
	RefundPercentage float64                 `json:"refund_percentage"`
	RefundAmount     float64                 `json:"refund_amount"`
	CancellationFee  float64                 `json:"cancellation_fee"`
	RuleApplied      *CancellationPolicyRule `json:"rule_applied,omitempty"`
}

// ApplicableRule selects the rule with the greatest days_before_travel
// threshold at or below the given days until travel, or nil if none qualifies.
func (p *CancellationPolicy) ApplicableRule(daysBeforeTravel int) *CancellationPolicyRule {
	var best *CancellationPolicyRule
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.DaysBeforeTravel > daysBeforeTravel {
			continue
		}
		if best == nil || r.DaysBeforeTravel > best.DaysBeforeTravel {
			best = r
		}
	}
	return best
}

// CalculateRefund applies the policy to a paid amount. No qualifying rule
// means no refund and the full amount retained as fee. The refund is the
// percentage of the paid amount minus the rule's fixed fee, floored at 0.
func (p *CancellationPolicy) CalculateRefund(paidAmount float64, daysBeforeTravel int) RefundQuote {
	rule := p.ApplicableRule(daysBeforeTravel)
	if rule == nil {
		return RefundQuote{CancellationFee: Round2(paidAmount)}
	}

	refund := paidAmount*rule.RefundPercentage/100 - rule.FeeAmount
	if refund < 0 {
		refund = 0
	}

	return RefundQuote{
		RefundPercentage: rule.RefundPercentage,
		RefundAmount:     Round2(refund),
		CancellationFee:  Round2(paidAmount - refund),
		RuleApplied:      rule,
	}
}

// NoRefundQuote is the outcome when no policy is resolvable for a booking:
// zero refund, full paid amount retained. This is not an error condition.
func NoRefundQuote(paidAmount float64) RefundQuote {
	return RefundQuote{CancellationFee: Round2(paidAmount)}
}
