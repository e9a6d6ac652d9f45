package wallet

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/fxwallet/fxwallet/internal/rates"
	"github.com/fxwallet/fxwallet/internal/strategy"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID       string          `json:"id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type balanceResponse struct {
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// Create provisions a wallet in the currency given by the query string.
func (h *Handler) Create(c *fiber.Ctx) error {
	wallet, err := h.service.Create(c.UserContext(), c.Query("currency"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:       wallet.ID,
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// Balance returns the wallet balance, optionally converted to ?currency=.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	target := strings.TrimSpace(c.Query("currency"))
	if target != "" {
		code, err := normalizeCurrency(target)
		if err != nil {
			return toHTTPError(err)
		}
		target = code
	}

	balance, err := h.service.Balance(c.UserContext(), walletID, target)
	if err != nil {
		return toHTTPError(err)
	}

	currency := target
	if currency == "" {
		if currency, err = h.service.BaseCurrency(c.UserContext(), walletID); err != nil {
			return toHTTPError(err)
		}
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		WalletID: walletID,
		Balance:  balance,
		Currency: currency,
	})
}

// AdjustBalance applies ?amount= in ?currency= using ?strategy=.
func (h *Handler) AdjustBalance(c *fiber.Ctx) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Query("amount")))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, ErrInvalidAmount.Error())
	}

	currency, err := normalizeCurrency(c.Query("currency"))
	if err != nil {
		return toHTTPError(err)
	}

	selector, err := strategy.ParseSelector(c.Query("strategy"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.service.Adjust(c.UserContext(), AdjustInput{
		WalletID: c.Params("walletId"),
		Amount:   amount,
		Currency: currency,
		Selector: selector,
	}); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidCurrency):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, strategy.ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, rates.ErrRateNotFound):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
