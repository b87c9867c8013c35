package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const DefaultAvatar = "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp&f=y"

// User represents one registered account. Secret fields (password hash,
// verification code, reset token hash) are never serialized to JSON and
// are only loaded from Mongo when a repository method explicitly selects
// them.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password,omitempty" json:"-"`
	Avatar   string             `bson:"avatar" json:"avatar"`
	Bio      string             `bson:"bio" json:"bio"`
	Role     string             `bson:"role" json:"role"`

	IsVerified             bool      `bson:"isVerified" json:"isVerified"`
	VerificationCode       int       `bson:"verificationCode,omitempty" json:"-"`
	VerificationCodeExpire time.Time `bson:"verificationCodeExpire,omitempty" json:"-"`

	ResetPasswordToken  string    `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire time.Time `bson:"resetPasswordExpire,omitempty" json:"-"`

	// TokenValidAfter invalidates every session token issued before it.
	// Bumped on password change and password reset.
	TokenValidAfter time.Time `bson:"tokenValidAfter,omitempty" json:"-"`

	IsActive   bool  `bson:"isActive" json:"isActive"`
	TotalPosts int64 `bson:"totalPosts" json:"totalPosts"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicProfile is the author-facing view of a user, safe for anyone to see.
type PublicProfile struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Avatar     string             `bson:"avatar" json:"avatar"`
	Bio        string             `bson:"bio" json:"bio"`
	TotalPosts int64              `bson:"totalPosts" json:"totalPosts"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// AuthorInfo is the compact author reference embedded in post responses.
type AuthorInfo struct {
	ID     primitive.ObjectID `json:"id"`
	Name   string             `json:"name"`
	Avatar string             `json:"avatar"`
	Bio    string             `json:"bio,omitempty"`
}
