package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// WalletHandler handles HTTP requests for the demo wallet
type WalletHandler struct {
	walletRepository repositories.WalletRepository
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletRepo repositories.WalletRepository) *WalletHandler {
	return &WalletHandler{walletRepository: walletRepo}
}

// RegisterWalletRoutes registers wallet routes
func (h *WalletHandler) RegisterWalletRoutes(g *echo.Group) {
	g.GET("/wallet", h.GetWallet)
	g.POST("/wallet/topup", h.TopUp)
	g.GET("/wallet/transactions", h.ListTransactions)
}

func (h *WalletHandler) GetWallet(c echo.Context) error {
	wallet, err := h.walletRepository.GetWallet(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, wallet)
}

// TopUp adds a demo amount to the caller's balance and returns the new wallet
func (h *WalletHandler) TopUp(c echo.Context) error {
	var req models.TopUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := middleware.CallerFrom(c)
	if err := h.walletRepository.TopUp(ctx, caller, req.Amount); err != nil {
		return httpError(err)
	}
	wallet, err := h.walletRepository.GetWallet(ctx, caller)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, wallet)
}

func (h *WalletHandler) ListTransactions(c echo.Context) error {
	txs, err := h.walletRepository.ListTransactions(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, txs)
}
