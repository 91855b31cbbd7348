package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Installment represents one entry of a loan's payment schedule
type Installment struct {
	InstallmentNo int             `json:"installment_no"`
	DueDate       civil.Date      `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
}

// DueReminder pairs a loan that is about to fall due with the owner to notify
type DueReminder struct {
	LoanID      int64           `db:"loan_id"`
	Username    string          `db:"username"`
	Email       string          `db:"email"`
	Amount      decimal.Decimal `db:"monthly_installment"`
	NextDueDate time.Time       `db:"next_due_date"`
}
