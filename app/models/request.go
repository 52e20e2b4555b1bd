package models

import "time"

// Request statuses. Accepted and Rejected are terminal.
const (
	StatusPending  = "Pending"
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

// ReasonProductUnavailable is recorded when a request is rejected because
// its product was sold or withdrawn.
const ReasonProductUnavailable = "product no longer available"

// Decision is a seller's answer to a pending request.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

// Status returns the terminal status the decision leads to.
func (d Decision) Status() string {
	if d == Accept {
		return StatusAccepted
	}
	return StatusRejected
}

func (d Decision) Valid() bool { return d == Accept || d == Reject }

// IsTerminal reports whether status can no longer change.
func IsTerminal(status string) bool {
	return status == StatusAccepted || status == StatusRejected
}

// Offer is the commercial snapshot shared by a Request and its history
// record. It is copied from the product when the buyer submits.
type Offer struct {
	ProductID     string `bson:"productId"     json:"productId"`
	ProductName   string `bson:"productName"   json:"productName"`
	OfferedPrice  Money  `bson:"offeredPrice"  json:"offeredPrice"`
	ExpectedPrice Money  `bson:"expectedPrice" json:"expectedPrice"`
	BuyerEmail    string `bson:"buyerEmail"    json:"buyerEmail"`
	SellerEmail   string `bson:"sellerEmail"   json:"sellerEmail"`
	Phone         string `bson:"phone"         json:"phone"`
}

// Request is the seller-side inbox entry. It is deleted once the seller
// acts on it.
type Request struct {
	ID               string `bson:"_id,omitempty"    json:"_id"`
	Offer            `bson:",inline"`
	Status           string    `bson:"status"           json:"status"`
	RequestHistoryID string    `bson:"requestHistoryId" json:"requestHistoryId"`
	CreatedAt        time.Time `bson:"createdAt"        json:"createdAt"`
}

// RequestHistory is the buyer-side permanent record of an offer.
type RequestHistory struct {
	ID        string `bson:"_id,omitempty"    json:"_id"`
	Offer     `bson:",inline"`
	Status    string    `bson:"status"           json:"status"`
	RequestID string    `bson:"requestId"        json:"requestId"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"createdAt"        json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"        json:"updatedAt"`
}
