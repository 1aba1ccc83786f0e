package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/session"
)

const (
	walletsCollection      = "wallets"
	transactionsCollection = "tx"
)

// WalletRepository defines the interface for demo wallet operations
type WalletRepository interface {
	GetWallet(ctx context.Context, caller session.Caller) (*models.Wallet, error)
	TopUp(ctx context.Context, caller session.Caller, amount int64) error
	ListTransactions(ctx context.Context, caller session.Caller) ([]models.Transaction, error)
}

// DocWalletRepository implements WalletRepository on a document store
type DocWalletRepository struct {
	store docstore.Store
}

// NewDocWalletRepository creates a new DocWalletRepository
func NewDocWalletRepository(store docstore.Store) *DocWalletRepository {
	return &DocWalletRepository{store: store}
}

// GetWallet returns the caller's wallet. A missing wallet has a zero balance.
func (r *DocWalletRepository) GetWallet(ctx context.Context, caller session.Caller) (*models.Wallet, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}
	wallet := &models.Wallet{UID: uid}
	doc, err := r.store.Get(ctx, docstore.Join(walletsCollection, uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if err := doc.DataTo(wallet); err != nil {
		return nil, fmt.Errorf("decode wallet: %w", err)
	}
	wallet.UID = uid
	return wallet, nil
}

// TopUp increments the balance and then appends a TOPUP ledger entry. The
// two writes are independent; a failed ledger write is logged with the amount.
func (r *DocWalletRepository) TopUp(ctx context.Context, caller session.Caller, amount int64) error {
	uid, err := caller.Require()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return invalid("amount", "must be positive")
	}

	walletPath := docstore.Join(walletsCollection, uid)
	if err := r.store.Merge(ctx, walletPath, map[string]any{
		"balance": docstore.Increment(amount),
	}); err != nil {
		return fmt.Errorf("increment balance: %w", err)
	}

	if _, err := r.store.Add(ctx, docstore.Join(walletPath, transactionsCollection), map[string]any{
		"type":      models.TransactionTopUp,
		"amount":    amount,
		"createdAt": docstore.ServerTimestamp,
	}); err != nil {
		slog.Error("balance incremented without ledger entry", "uid", uid, "amount", amount, "error", err)
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// ListTransactions returns the caller's ledger, newest first.
func (r *DocWalletRepository) ListTransactions(ctx context.Context, caller session.Caller) ([]models.Transaction, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, docstore.Collection(docstore.Join(walletsCollection, uid, transactionsCollection)).
		Order("createdAt", docstore.Desc))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return decodeAll(docs, func(tx *models.Transaction, id string) { tx.ID = id })
}
