package models

// Reconciliation steps and statuses.
const (
	ReconStepCoins = "coins"
	ReconStepStock = "stock"
	ReconStepOffer = "offer"

	ReconStatusPending = "pending"
	ReconStatusDone    = "done"
	ReconStatusFailed  = "failed"
)

// ReconciliationTask is an outbox row recorded when a post-order checkout step
// fails. The order itself always survives; these tasks make the failed step
// visible and retryable. One task per (order number, step).
type ReconciliationTask struct {
	BaseModel
	OrderNumber string `gorm:"index:idx_recon_order_step,unique" json:"order_number"`
	Step        string `gorm:"index:idx_recon_order_step,unique" json:"step"`
	Payload     string `json:"payload"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error"`
}
