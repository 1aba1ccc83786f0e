package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultAvatarColor is the ARGB color given to new profiles.
const DefaultAvatarColor int64 = 0xFF6750A4

// UserProfile is the public profile stored at users/{uid}
type UserProfile struct {
	UID         string    `json:"uid" firestore:"uid" bson:"uid"`
	Email       string    `json:"email,omitempty" firestore:"email,omitempty" bson:"email,omitempty"`
	DisplayName string    `json:"displayName" firestore:"displayName" bson:"displayName"`
	Department  string    `json:"department" firestore:"department" bson:"department"`
	University  string    `json:"university" firestore:"university" bson:"university"`
	Level       string    `json:"level" firestore:"level" bson:"level"`
	Bio         string    `json:"bio" firestore:"bio" bson:"bio"`
	AvatarColor int64     `json:"avatarColor" firestore:"avatarColor" bson:"avatarColor"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// Account holds login credentials in PostgreSQL. Domain data lives in the
// document store under the same UID.
type Account struct {
	ID               uint      `json:"-" gorm:"primaryKey"`
	UID              string    `json:"uid" gorm:"uniqueIndex;size:128"`
	Email            string    `json:"email" gorm:"uniqueIndex;size:255"`
	PasswordHash     string    `json:"-"`                                        // bcrypt, empty for Firebase-only accounts
	FirebaseUID      *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
	TokensValidAfter time.Time `json:"-"`                                        // tokens issued earlier are rejected
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SignupRequest defines the request body for email/password registration
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Confirm  string `json:"confirm" validate:"required,eqfield=Password"`
}

// SigninRequest defines the request body for email/password login
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// UpdateProfileRequest defines the request body for updating one's profile.
// Absent fields are left unchanged on PATCH and cleared on PUT.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,max=60"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=120"`
	University  *string `json:"university,omitempty" validate:"omitempty,max=120"`
	Level       *string `json:"level,omitempty" validate:"omitempty,max=40"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	AvatarColor *int64  `json:"avatarColor,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	IssuedAtMs int64  `json:"iat_ms,omitempty"` // iat with millisecond precision, checked against sign-out
	jwt.RegisteredClaims
}

// Fields returns the non-nil fields keyed by their stored names.
func (r UpdateProfileRequest) Fields() map[string]any {
	fields := make(map[string]any)
	if r.DisplayName != nil {
		fields["displayName"] = *r.DisplayName
	}
	if r.Department != nil {
		fields["department"] = *r.Department
	}
	if r.University != nil {
		fields["university"] = *r.University
	}
	if r.Level != nil {
		fields["level"] = *r.Level
	}
	if r.Bio != nil {
		fields["bio"] = *r.Bio
	}
	if r.AvatarColor != nil {
		fields["avatarColor"] = *r.AvatarColor
	}
	return fields
}

// Profile returns the request as a full profile. Absent fields are empty.
func (r UpdateProfileRequest) Profile() UserProfile {
	var p UserProfile
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	p.DisplayName = deref(r.DisplayName)
	p.Department = deref(r.Department)
	p.University = deref(r.University)
	p.Level = deref(r.Level)
	p.Bio = deref(r.Bio)
	if r.AvatarColor != nil {
		p.AvatarColor = *r.AvatarColor
	}
	return p
}
