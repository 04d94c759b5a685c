package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserData struct {
	Id             primitive.ObjectID `json:"_id" bson:"_id"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Login          string             `json:"login" bson:"login,omitempty"`
	HashedPassword string             `json:"-" bson:"password_hash,omitempty"`
	Role           string             `json:"role" bson:"role,omitempty"`
}

// Identity is the caller as asserted by a validated bearer token.
type Identity struct {
	UserId primitive.ObjectID
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller owns the resource or is an admin.
func (i Identity) CanAccess(owner primitive.ObjectID) bool {
	return i.IsAdmin() || i.UserId == owner
}
