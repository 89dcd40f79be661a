package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/venueworks/playpass/internal/qrimg"
	"github.com/venueworks/playpass/pkg/wallet"
)

const dateLayout = "2006-01-02"

type customerView struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Mobile         string          `json:"mobile"`
	Birthdate      string          `json:"birthdate"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	QRToken        string          `json:"qr_token"`
	QRImageURL     string          `json:"qr_image_url"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (server *Server) customerView(customer wallet.Customer) customerView {
	return customerView{
		ID:             customer.CustomerID,
		Name:           customer.Name,
		Mobile:         customer.Mobile,
		Birthdate:      customer.Birthdate.Format(dateLayout),
		CurrentBalance: customer.CurrentBalance,
		QRToken:        customer.QRToken,
		QRImageURL:     qrimg.ImageURL(server.config.PublicBaseURL, customer.QRToken),
		CreatedAt:      customer.CreatedAt,
	}
}

func (server *Server) customerViews(customers []wallet.Customer) []customerView {
	views := make([]customerView, 0, len(customers))
	for _, customer := range customers {
		views = append(views, server.customerView(customer))
	}
	return views
}

type sessionView struct {
	ID                 int64           `json:"id"`
	CustomerID         int64           `json:"customer_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	CustomerMobile     string          `json:"customer_mobile,omitempty"`
	Adults             int             `json:"adults"`
	Children           int             `json:"children"`
	DurationHours      decimal.Decimal `json:"duration_hours"`
	ActualCost         decimal.Decimal `json:"actual_cost"`
	DiscountedCost     decimal.Decimal `json:"discounted_cost"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountReason     string          `json:"discount_reason,omitempty"`
	StartedAt          time.Time       `json:"started_at"`
	ExpectedEndAt      time.Time       `json:"expected_end_at"`
	EndedAt            *time.Time      `json:"ended_at,omitempty"`
	Status             string          `json:"status"`
}

func sessionViewOf(session wallet.Session) sessionView {
	return sessionView{
		ID:                 session.SessionID,
		CustomerID:         session.CustomerID,
		Adults:             session.Adults,
		Children:           session.Children,
		DurationHours:      session.DurationHours,
		ActualCost:         session.ActualCost,
		DiscountedCost:     session.DiscountedCost,
		DiscountPercentage: session.DiscountPercentage,
		DiscountReason:     session.DiscountReason,
		StartedAt:          session.StartedAt,
		ExpectedEndAt:      session.ExpectedEndAt,
		EndedAt:            session.EndedAt,
		Status:             session.Status.String(),
	}
}

func sessionRecordView(record wallet.SessionRecord) sessionView {
	view := sessionViewOf(record.Session)
	view.CustomerName = record.CustomerName
	view.CustomerMobile = record.CustomerMobile
	return view
}

func sessionRecordViews(records []wallet.SessionRecord) []sessionView {
	views := make([]sessionView, 0, len(records))
	for _, record := range records {
		views = append(views, sessionRecordView(record))
	}
	return views
}

type transactionView struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customer_id"`
	CustomerName   string          `json:"customer_name,omitempty"`
	CustomerMobile string          `json:"customer_mobile,omitempty"`
	Kind           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMode    string          `json:"payment_mode"`
	AdminUsername  string          `json:"admin_username,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

func transactionRecordViews(records []wallet.TransactionRecord) []transactionView {
	views := make([]transactionView, 0, len(records))
	for _, record := range records {
		views = append(views, transactionView{
			ID:             record.TransactionID,
			CustomerID:     record.CustomerID,
			CustomerName:   record.CustomerName,
			CustomerMobile: record.CustomerMobile,
			Kind:           record.Kind.String(),
			Amount:         record.Amount,
			PaymentMode:    record.PaymentMode.String(),
			AdminUsername:  record.AdminUsername,
			RecordedAt:     record.RecordedAt,
		})
	}
	return views
}

type paymentSumsView struct {
	Cash  decimal.Decimal `json:"cash"`
	UPI   decimal.Decimal `json:"upi"`
	Card  decimal.Decimal `json:"card"`
	Total decimal.Decimal `json:"total"`
}

func paymentSumsViewOf(sums wallet.PaymentSums) paymentSumsView {
	return paymentSumsView{Cash: sums.Cash, UPI: sums.UPI, Card: sums.Card, Total: sums.Total}
}

type adminView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func adminViews(admins []wallet.Admin) []adminView {
	views := make([]adminView, 0, len(admins))
	for _, admin := range admins {
		views = append(views, adminView{
			ID:        admin.AdminID,
			Username:  admin.Username,
			Role:      admin.Role.String(),
			CreatedAt: admin.CreatedAt,
		})
	}
	return views
}

type offerView struct {
	ID            int64           `json:"id"`
	TriggerAmount decimal.Decimal `json:"trigger_amount"`
	BonusAmount   decimal.Decimal `json:"bonus_amount"`
	Description   string          `json:"description"`
	Active        bool            `json:"active"`
}

func offerViews(offers []wallet.RechargeOffer) []offerView {
	views := make([]offerView, 0, len(offers))
	for _, offer := range offers {
		views = append(views, offerViewOf(offer))
	}
	return views
}

func offerViewOf(offer wallet.RechargeOffer) offerView {
	return offerView{
		ID:            offer.OfferID,
		TriggerAmount: offer.TriggerAmount,
		BonusAmount:   offer.BonusAmount,
		Description:   offer.Description,
		Active:        offer.Active,
	}
}

type pricingPlanView struct {
	ID             int64           `json:"id"`
	Label          string          `json:"label"`
	Type           string          `json:"type"`
	Price          decimal.Decimal `json:"price"`
	DurationHours  decimal.Decimal `json:"duration_hours"`
	IncludedAdults int             `json:"included_adults"`
	Active         bool            `json:"active"`
}

func pricingPlanViews(plans []wallet.PricingPlan) []pricingPlanView {
	views := make([]pricingPlanView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, pricingPlanViewOf(plan))
	}
	return views
}

func pricingPlanViewOf(plan wallet.PricingPlan) pricingPlanView {
	return pricingPlanView{
		ID:             plan.PlanID,
		Label:          plan.Label,
		Type:           plan.Type.String(),
		Price:          plan.Price,
		DurationHours:  plan.DurationHours,
		IncludedAdults: plan.IncludedAdults,
		Active:         plan.Active,
	}
}
