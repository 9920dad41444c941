package handler

import (
	"io"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済プロバイダからのWebhook受け口。
// 認証はBearerではなく署名ヘッダで行う。
type WebhookHandler struct {
	uc *usecase.PaymentUsecase
}

func NewWebhookHandler(uc *usecase.PaymentUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/webhook", h.receive)
}

func (h *WebhookHandler) receive(c echo.Context) error {
	//署名検証は生のbodyに対して行う
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		signature = c.Request().Header.Get("X-Webhook-Signature")
	}

	if err := h.uc.HandleWebhook(c.Request().Context(), payload, signature); err != nil {
		return writeError(c, err)
	}

	//重複・処理済みでも200。プロバイダの再送を止める。
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
