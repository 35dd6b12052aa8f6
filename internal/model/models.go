package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is a regular marketplace member
	RoleUser UserRole = "user"
	// RoleAdmin is an admin role
	RoleAdmin UserRole = "admin"
)

// User is the identity model. A row is created as soon as a signup code is
// requested; profile fields and the password hash are filled in after the
// identifier has been verified.
//
// At most one of OTP and LastLoginOTP is active at a time: a successful code
// verification clears both together with the expiry in a single update.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             int64      `bun:"user_id,pk,autoincrement" json:"user_id,omitempty"`
	MobileNumber   string     `bun:"mobile_number,notnull,unique" json:"mobile_number,omitempty"`
	Email          string     `bun:"email" json:"email,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	College        string     `bun:"college" json:"college,omitempty"`
	Role           UserRole   `bun:"user_role,notnull,default:'user'" json:"user_role,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	MobileVerified bool       `bun:"mobile_verified,notnull,default:false" json:"mobile_verified,omitempty"`
	TwoFAEnabled   bool       `bun:"is_2fa_enabled,notnull,default:false" json:"is_2fa_enabled,omitempty"`
	OTP            *string    `bun:"otp" json:"-"`
	OTPExpiry      *time.Time `bun:"otp_expiry,nullzero" json:"-"`
	LastLoginOTP   *string    `bun:"last_login_otp" json:"-"`
	Address        string     `bun:"address" json:"address,omitempty"`
	ContactNumber  string     `bun:"contact_number" json:"contact_number,omitempty"`
	ProfileURL     string     `bun:"profile_url" json:"profile_url,omitempty"`
	IsContactView  bool       `bun:"is_contact_view,notnull,default:false" json:"is_contact_view,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Product is the minimal listing row the chat and notification flows need:
// enough to resolve a listing's owner and describe it in a notification.
// Full product CRUD lives outside this core.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`

	ID        int64      `bun:"product_id,pk,autoincrement" json:"product_id,omitempty"`
	UUID      uuid.UUID  `bun:"id,notnull,unique,type:uuid" json:"id,omitempty"`
	UserID    int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	Name      string     `bun:"product_name,notnull" json:"product_name,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Chat is the conversation thread between a listing owner and one buyer.
// The (product, buyer) pair is unique; the index is the final guard against
// two concurrent find-or-create calls racing to insert the same pair.
type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:cht"`

	ID              int64      `bun:"chat_id,pk,autoincrement" json:"chat_id,omitempty"`
	UUID            uuid.UUID  `bun:"id,notnull,unique,type:uuid" json:"id,omitempty"`
	ProductID       int64      `bun:"product_id,notnull,unique:chat_product_buyer" json:"product_id,omitempty"`
	BuyerID         int64      `bun:"buyer_id,notnull,unique:chat_product_buyer" json:"buyer_id,omitempty"`
	BuyerLastSeenAt *time.Time `bun:"buyer_last_seen_at,nullzero" json:"buyer_last_seen_at,omitempty"`
	OwnerLastSeenAt *time.Time `bun:"owner_last_seen_at,nullzero" json:"owner_last_seen_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`

	Product  *Product   `bun:"rel:belongs-to,join:product_id=product_id" json:"product,omitempty"`
	Buyer    *User      `bun:"rel:belongs-to,join:buyer_id=user_id" json:"buyer,omitempty"`
	Messages []*Message `bun:"rel:has-many,join:chat_id=chat_id" json:"messages,omitempty"`
}

// Message belongs to exactly one chat. Ordering within a chat is defined by
// CreatedAt ascending, not by broadcast delivery order.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:msg"`

	ID        int64     `bun:"message_id,pk,autoincrement" json:"message_id,omitempty"`
	ChatID    int64     `bun:"chat_id,notnull" json:"chat_id,omitempty"`
	UserID    int64     `bun:"user_id,notnull" json:"user_id,omitempty"`
	Message   string    `bun:"message,notnull" json:"message,omitempty"`
	CreatedAt time.Time `bun:"created_date,notnull,default:current_timestamp" json:"created_date,omitempty"`
}

// Notification is a per-user ledger entry created when a listing event fires.
// The read flag only ever flips from false to true, via an explicit ack;
// rows are never deleted by this core.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`

	ID        int64      `bun:"notification_id,pk,autoincrement" json:"notification_id,omitempty"`
	UserID    int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	Message   string     `bun:"message,notnull" json:"message,omitempty"`
	ProductID int64      `bun:"product_id,notnull" json:"product_id,omitempty"`
	IsRead    bool       `bun:"is_read,notnull,default:false" json:"is_read"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
