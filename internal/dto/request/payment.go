package request

import "github.com/shopspring/decimal"

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"` // defaults to the full charge
	Reason string           `json:"reason" validate:"omitempty,max=255"`
}

type ReleaseEscrowRequest struct {
	PayoutAccountID *string `json:"payout_account_id,omitempty" validate:"omitempty,max=255"`
}
