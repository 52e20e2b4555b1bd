package models

import "time"

// Collection names shared by repositories and index migrations.
const (
	ProductsCollection       = "products"
	RequestsCollection       = "Requests"
	RequestHistoryCollection = "requestHistory"
	UsersCollection          = "users"
)

// Product types a seller can list.
const (
	TypeWasteProduct = "Waste Product"
	TypeByProduct    = "By Product"
)

// ProductAvailable is the only status a listed product ever has; a sold
// product is deleted rather than marked.
const ProductAvailable = "Available"

// DefaultDemand is the score a product carries until one is measured.
const DefaultDemand = 50

// Product is a listing in the products collection.
type Product struct {
	ID          string    `bson:"_id,omitempty"  json:"_id"`
	ProductID   string    `bson:"productId"      json:"productId"`
	Name        string    `bson:"name"           json:"name"`
	Category    string    `bson:"category"       json:"category"`
	Quantity    int       `bson:"quantity"       json:"quantity"`
	Unit        string    `bson:"unit"           json:"unit"`
	Price       Money     `bson:"price"          json:"price"`
	Type        string    `bson:"type"           json:"type"`
	Description string    `bson:"description"    json:"description"`
	Demand      int       `bson:"demand"         json:"demand"`
	Status      string    `bson:"status"         json:"status"`
	Email       string    `bson:"email"          json:"email"`
	CreatedAt   time.Time `bson:"createdAt"      json:"createdAt"`
}

// OwnedBy reports whether email is the seller who listed p.
func (p Product) OwnedBy(email string) bool {
	return p.Email != "" && p.Email == email
}
