package models

import "time"

// Tournament is stored at groups/{gid}/tournaments/{tid}
type Tournament struct {
	ID        string    `json:"id" firestore:"-" bson:"-"`
	Title     string    `json:"title" firestore:"title" bson:"title"`
	EntryFee  int64     `json:"entryFee" firestore:"entryFee" bson:"entryFee"`
	CreatedBy string    `json:"createdBy" firestore:"createdBy" bson:"createdBy"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// Participant is stored at .../tournaments/{tid}/participants/{uid}
type Participant struct {
	UID      string    `json:"uid" firestore:"uid" bson:"uid"`
	Score    int64     `json:"score" firestore:"score" bson:"score"`
	JoinedAt time.Time `json:"joinedAt" firestore:"joinedAt" bson:"joinedAt"`
}

// CreateTournamentRequest defines the request body for creating a tournament
type CreateTournamentRequest struct {
	Title    string `json:"title" validate:"required,max=120"`
	EntryFee int64  `json:"entryFee" validate:"min=0"`
}
