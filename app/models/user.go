package models

import "time"

// Account roles.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// User is an account in the users collection. Email is the identity every
// ownership check uses.
type User struct {
	ID           string    `bson:"_id,omitempty"         json:"_id"`
	Username     string    `bson:"username"              json:"username"`
	Email        string    `bson:"email"                 json:"email"`
	Role         string    `bson:"role"                  json:"role"`
	CompanyName  string    `bson:"companyName,omitempty" json:"companyName,omitempty"`
	PasswordHash string    `bson:"passwordHash"          json:"-"`
	CreatedAt    time.Time `bson:"createdAt"             json:"createdAt"`
}
