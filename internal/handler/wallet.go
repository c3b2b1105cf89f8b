package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/service"
)

type WalletHandler struct {
	wallet service.WalletService
	logger *zap.Logger
}

func NewWalletHandler(wallet service.WalletService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, logger: logger}
}

type UpdateBalanceRequest struct {
	UserID     string           `json:"userId" binding:"required"`
	NewBalance *decimal.Decimal `json:"newBalance" binding:"required"`
	Reason     string           `json:"reason"`
}

type AdjustBalanceRequest struct {
	UserID string           `json:"userId" binding:"required"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
	Reason string           `json:"reason"`
}

type BalanceResponse struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *WalletHandler) Balance(c *gin.Context) {
	h.balanceOf(c, currentUser(c).ID)
}

func (h *WalletHandler) BalanceForUser(c *gin.Context) {
	h.balanceOf(c, c.Param("userId"))
}

func (h *WalletHandler) balanceOf(c *gin.Context, userID string) {
	balance, err := h.wallet.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{UserID: userID, Balance: balance})
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	txs, err := h.wallet.Transactions(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *WalletHandler) UpdateBalance(c *gin.Context) {
	var req UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ok, err := h.wallet.SetBalance(c.Request.Context(), req.UserID, *req.NewBalance, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	h.balanceOf(c, req.UserID)
}

func (h *WalletHandler) AddBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ok, err := h.wallet.Credit(c.Request.Context(), req.UserID, *req.Amount, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	h.balanceOf(c, req.UserID)
}

func (h *WalletHandler) DeductBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ok, err := h.wallet.Debit(c.Request.Context(), req.UserID, *req.Amount, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !ok {
		badRequest(c, "Insufficient balance or user not found")
		return
	}
	h.balanceOf(c, req.UserID)
}
