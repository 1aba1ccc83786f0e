package models

import "time"

// Message is a chat message under groups/{gid}/messages or chats/{chatId}/messages
type Message struct {
	ID        string    `json:"id" firestore:"-" bson:"-"`
	SenderUID string    `json:"senderUid" firestore:"senderUid" bson:"senderUid"`
	Text      string    `json:"text" firestore:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// Chat is the parent document of a direct conversation at chats/{chatId}
type Chat struct {
	ID           string    `json:"id" firestore:"-" bson:"-"`
	Participants []string  `json:"participants" firestore:"participants" bson:"participants"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// SendMessageRequest defines the request body for posting a message
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}
