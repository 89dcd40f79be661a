package export

import (
	"strconv"
	"time"

	"github.com/venueworks/playpass/pkg/wallet"
)

const timestampLayout = "2006-01-02 15:04"

// CustomersTable flattens customers for export.
func CustomersTable(customers []wallet.Customer) Table {
	rows := make([][]string, 0, len(customers))
	for _, customer := range customers {
		rows = append(rows, []string{
			strconv.FormatInt(customer.CustomerID, 10),
			customer.Name,
			customer.Mobile,
			customer.Birthdate.Format("2006-01-02"),
			customer.CurrentBalance.String(),
			customer.CreatedAt.Format(timestampLayout),
		})
	}
	return Table{
		Title:   "Customers",
		Headers: []string{"ID", "Name", "Mobile", "Birthdate", "Balance", "Registered"},
		Rows:    rows,
	}
}

// TransactionsTable flattens ledger rows for export.
func TransactionsTable(records []wallet.TransactionRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.FormatInt(record.TransactionID, 10),
			record.CustomerName,
			record.CustomerMobile,
			record.Kind.String(),
			record.Amount.String(),
			record.PaymentMode.String(),
			record.AdminUsername,
			record.RecordedAt.Format(timestampLayout),
		})
	}
	return Table{
		Title:   "Transactions",
		Headers: []string{"ID", "Customer", "Mobile", "Type", "Amount", "Mode", "Staff", "Recorded"},
		Rows:    rows,
	}
}

// SessionsTable flattens session history for export.
func SessionsTable(records []wallet.SessionRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		endedAt := ""
		if record.EndedAt != nil {
			endedAt = record.EndedAt.Format(timestampLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(record.SessionID, 10),
			record.CustomerName,
			record.CustomerMobile,
			strconv.Itoa(record.Adults),
			strconv.Itoa(record.Children),
			record.DurationHours.String(),
			record.DiscountedCost.String(),
			record.Status.String(),
			record.StartedAt.Format(timestampLayout),
			record.ExpectedEndAt.Format(timestampLayout),
			endedAt,
		})
	}
	return Table{
		Title:   "Sessions",
		Headers: []string{"ID", "Customer", "Mobile", "Adults", "Children", "Hours", "Cost", "Status", "Started", "Expected End", "Ended"},
		Rows:    rows,
	}
}

// Filename builds a dated attachment name like transactions-2025-03-10.csv.
func Filename(prefix string, format string, at time.Time) string {
	return prefix + "-" + at.Format("2006-01-02") + "." + format
}
