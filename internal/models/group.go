package models

import "time"

// Group is a study group stored at groups/{id}
type Group struct {
	ID          string    `json:"id" firestore:"-" bson:"-"`
	Name        string    `json:"name" firestore:"name" bson:"name"`
	University  string    `json:"uni" firestore:"uni" bson:"uni"`
	Department  string    `json:"dept" firestore:"dept" bson:"dept"`
	Level       string    `json:"level" firestore:"level" bson:"level"`
	Code        string    `json:"code" firestore:"code" bson:"code"` // 6 digit join code
	OwnerID     string    `json:"ownerId" firestore:"ownerId" bson:"ownerId"`
	Members     []string  `json:"members" firestore:"members" bson:"members"`
	MemberCount int64     `json:"memberCount" firestore:"memberCount" bson:"memberCount"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// HasMember reports whether uid is in the member list.
func (g *Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// CreateGroupRequest defines the request body for creating a group
type CreateGroupRequest struct {
	Name       string `json:"name" validate:"required,max=80"`
	University string `json:"uni" validate:"max=120"`
	Department string `json:"dept" validate:"max=120"`
	Level      string `json:"level" validate:"max=40"`
}

// JoinGroupRequest defines the request body for joining a group by code
type JoinGroupRequest struct {
	Code string `json:"code" validate:"required"`
}
