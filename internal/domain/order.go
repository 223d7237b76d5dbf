package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// OrderStatus describes where an order sits in its lifecycle.
type OrderStatus string

const (
	OrderReceived     OrderStatus = "주문접수"
	OrderPaid         OrderStatus = "결제완료"
	OrderPreparing    OrderStatus = "배송준비"
	OrderShipping     OrderStatus = "배송중"
	OrderDelivered    OrderStatus = "배송완료"
	OrderCancelled    OrderStatus = "주문취소"
	OrderRefundPend   OrderStatus = "환불처리중"
	OrderRefunded     OrderStatus = "환불완료"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderReceived, OrderPaid, OrderPreparing, OrderShipping,
		OrderDelivered, OrderCancelled, OrderRefundPend, OrderRefunded:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderReceived, OrderPaid, OrderPreparing:
		return true
	}
	return false
}

// PaymentMethod is the fixed set of accepted payment methods.
type PaymentMethod string

const (
	PayCard         PaymentMethod = "카드결제"
	PayTransfer     PaymentMethod = "계좌이체"
	PayLiveTransfer PaymentMethod = "실시간 계좌이체"
	PayDeposit      PaymentMethod = "무통장입금"
	PayVirtualAcct  PaymentMethod = "가상계좌"
	PayMobile       PaymentMethod = "휴대폰결제"
	PayEasy         PaymentMethod = "간편결제"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCard, PayTransfer, PayLiveTransfer, PayDeposit,
		PayVirtualAcct, PayMobile, PayEasy:
		return true
	}
	return false
}

// PaymentStatus describes the settlement state of an order's payment.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "결제대기"
	PaymentCompleted     PaymentStatus = "결제완료"
	PaymentFailed        PaymentStatus = "결제실패"
	PaymentRefunded      PaymentStatus = "환불완료"
	PaymentPartialRefund PaymentStatus = "부분환불"
)

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed,
		PaymentRefunded, PaymentPartialRefund:
		return true
	}
	return false
}

// CancelledBy identifies which side cancelled an order.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByAdmin    CancelledBy = "admin"
)

// Valid reports whether c names one of the known cancelling sides.
func (c CancelledBy) Valid() bool {
	switch c {
	case CancelledByCustomer, CancelledByAdmin:
		return true
	}
	return false
}

// ShippingInfo is the delivery sub-document of an order. RecipientName,
// RecipientPhone and Address are required; the rest are optional.
type ShippingInfo struct {
	RecipientName   string `json:"recipientName"`
	RecipientPhone  string `json:"recipientPhone"`
	Address         string `json:"address"`
	AddressDetail   string `json:"addressDetail"`
	PostalCode      string `json:"postalCode"`
	DeliveryRequest string `json:"deliveryRequest"`
	ShippingFee     int64  `json:"shippingFee"`
}

// Refund records a full or partial refund against a payment.
type Refund struct {
	Amount     int64      `json:"amount"`
	Reason     string     `json:"reason"`
	RefundedAt *time.Time `json:"refundedAt,omitempty"`
}

// PaymentInfo is the payment sub-document of an order. TransactionID is the
// gateway-assigned identifier; empty for manual bank deposits.
type PaymentInfo struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	Amount        int64         `json:"amount"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	TransactionID string        `json:"transactionId"`
	Refund        Refund        `json:"refund"`
}

// Amounts summarizes the money side of an order.
type Amounts struct {
	DiscountAmount int64 `json:"discountAmount"`
	FinalAmount    int64 `json:"finalAmount"`
}

// Cancellation records when and by whom an order was cancelled.
type Cancellation struct {
	CancelledAt *time.Time  `json:"cancelledAt,omitempty"`
	CancelledBy CancelledBy `json:"cancelledBy,omitempty"`
}

// Tracking carries the shipment tracking fields set by admins.
type Tracking struct {
	TrackingNumber string     `json:"trackingNumber"`
	Carrier        string     `json:"carrier"`
	ShippedAt      *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

// OrderItem is one line of an order: a product reference, a quantity and the
// chosen options. Price is resolved by dereferencing the product at read
// time; there is no price snapshot.
type OrderItem struct {
	ID        uuid.UUID   `json:"id"`
	ProductID uuid.UUID   `json:"productId"`
	Quantity  int         `json:"quantity"`
	Options   ItemOptions `json:"options"`

	Product *Product `json:"product,omitempty"`
}

// Order is the immutable-after-creation purchase aggregate. Items are fixed
// at creation; only status, payment, tracking and cancellation fields may be
// updated afterwards.
type Order struct {
	ID           uuid.UUID    `json:"id"`
	OrderNumber  string       `json:"orderNumber"`
	UserID       uuid.UUID    `json:"userId"`
	Items        []OrderItem  `json:"items"`
	Shipping     ShippingInfo `json:"shipping"`
	Payment      PaymentInfo  `json:"payment"`
	Amounts      Amounts      `json:"amounts"`
	Status       OrderStatus  `json:"status"`
	Cancellation Cancellation `json:"cancellation"`
	Tracking     Tracking     `json:"tracking"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	User *User `json:"user,omitempty"`
}

// GenerateOrderNumber builds a candidate order number of the form
// ORD-YYYYMMDD-HHMMSS-RRRR. Uniqueness is the caller's responsibility; the
// persistence layer retries with fresh candidates on collision.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s-%04d",
		now.Format("20060102"), now.Format("150405"), rand.Intn(10000))
}
