package audit

import (
	"fmt"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
)

// TransactionLine renders "<ts> - <OPERATION> : <cashier> <request>\n".
func TransactionLine(rec models.OperationRecord) string {
	return fmt.Sprintf("%s - %s : %s %s\n",
		rec.Timestamp.Format(models.TimestampLayout), rec.OperationType, rec.CashierName, rec)
}

// BalanceLine renders "<ts> - <cashier>: {CUR=[qtyxvalue, ...]}\n" with
// zero-quantity entries left out.
func BalanceLine(at time.Time, balance models.CashierBalance) string {
	return fmt.Sprintf("%s - %s: %s\n", at.Format(models.TimestampLayout), balance.Cashier, balance.NonZeroString())
}
