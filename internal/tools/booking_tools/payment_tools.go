package booking_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/logging"
	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/store"
	"github.com/teemow/tripbooker/internal/tools/common"
)

// paymentView is a payment as shown to its owner
type paymentView struct {
	ID           string  `json:"id"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	HotelName    string  `json:"hotelName"`
	CheckinDate  string  `json:"checkinDate"`
	CheckoutDate string  `json:"checkoutDate"`
	PhotoURL     string  `json:"photoUrl,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

func newPaymentView(p store.Payment) paymentView {
	return paymentView{
		ID:           p.ID.String(),
		Price:        p.Price,
		Currency:     p.Currency,
		HotelName:    p.HotelName,
		CheckinDate:  p.CheckinDate.Format(time.DateOnly),
		CheckoutDate: p.CheckoutDate.Format(time.DateOnly),
		PhotoURL:     p.PhotoURL,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// listUserPayments returns the newest payments of email. Unknown users have
// no payments.
func listUserPayments(ctx context.Context, st store.Store, email string) ([]paymentView, error) {
	user, err := st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return []paymentView{}, nil
	}
	if err != nil {
		return nil, err
	}

	payments, err := st.ListPayments(ctx, user.ID, store.DefaultPaymentsLimit)
	if err != nil {
		return nil, err
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, newPaymentView(p))
	}
	return views, nil
}

// registerPaymentTools registers the payment history tool
func registerPaymentTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	paymentsTool := mcp.NewTool("show_booking_payments",
		mcp.WithDescription("Show the booking payments recorded for the signed-in user, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	paymentsTool.Meta = &mcp.Meta{AdditionalFields: paymentsWidget.meta()}

	s.AddTool(paymentsTool, common.InstrumentedToolHandlerWithOperation(
		"show_booking_payments", instrumentation.OperationListPayments, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			email, errResult := common.RequireUser(ctx)
			if errResult != nil {
				return errResult, nil
			}

			payments, err := listUserPayments(ctx, sc.Store(), email)
			if err != nil {
				sc.Logger().Error("failed to list payments", logging.Tool("show_booking_payments"), logging.UserHash(email), logging.Err(err))
				return mcp.NewToolResultError(fmt.Sprintf("Failed to load payments: %v", err)), nil
			}

			text := fmt.Sprintf("Retrieved %d booking payment(s) for %s.", len(payments), email)
			if len(payments) == 0 {
				text = fmt.Sprintf("No booking payments found for %s.", email)
			}
			return structuredResult(text, map[string]any{
				"payments":  payments,
				"email":     email,
				"count":     len(payments),
				"limit":     store.DefaultPaymentsLimit,
				"timestamp": timestamp(),
			}, &paymentsWidget), nil
		},
	))
}
