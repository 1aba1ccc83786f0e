package models

import "time"

// TransactionTopUp tags a demo top-up ledger entry.
const TransactionTopUp = "TOPUP"

// Wallet is the balance document at wallets/{uid}
type Wallet struct {
	UID     string `json:"uid" firestore:"-" bson:"-"`
	Balance int64  `json:"balance" firestore:"balance" bson:"balance"`
}

// Transaction is an append-only ledger entry at wallets/{uid}/tx/{id}
type Transaction struct {
	ID        string    `json:"id" firestore:"-" bson:"-"`
	Type      string    `json:"type" firestore:"type" bson:"type"`
	Amount    int64     `json:"amount" firestore:"amount" bson:"amount"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// TopUpRequest defines the request body for a demo top-up
type TopUpRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}
