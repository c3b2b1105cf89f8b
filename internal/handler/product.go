package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
	"github.com/shopfront/order-service/internal/service"
)

type ProductHandler struct {
	products service.ProductService
	logger   *zap.Logger
}

func NewProductHandler(products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

type CreateProductRequest struct {
	Type        string           `json:"type" binding:"required"`
	Name        string           `json:"name" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       int              `json:"stock" binding:"gte=0"`
	Brand       string           `json:"brand"`
	Description string           `json:"description"`
	Power       int              `json:"power"`
	Material    string           `json:"material"`
	Image       string           `json:"image"`
	ScreenSize  string           `json:"screenSize"`
	Scope       string           `json:"scope"`
	Capacity    string           `json:"capacity"`
}

func (h *ProductHandler) List(c *gin.Context) {
	var kind domain.ProductKind
	if t := c.Query("type"); t != "" {
		k, err := domain.ParseProductKind(t)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		kind = k
	}

	products, err := h.products.List(c.Request.Context(), kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.products.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.products.Create(c.Request.Context(), service.CreateProductInput{
		Type:        req.Type,
		Name:        req.Name,
		Price:       *req.Price,
		Stock:       req.Stock,
		Brand:       req.Brand,
		Description: req.Description,
		Power:       req.Power,
		Material:    req.Material,
		Image:       req.Image,
		ScreenSize:  req.ScreenSize,
		Scope:       req.Scope,
		Capacity:    req.Capacity,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
