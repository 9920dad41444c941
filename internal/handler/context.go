package handler

import (
	appmw "app/internal/middleware"

	"github.com/labstack/echo/v4"
)

// AuthJWTが入れたuser_idを取り出す
func getUserIDFromContext(c echo.Context) int64 {
	raw := c.Get(appmw.CtxUserIDKey)
	userID, ok := raw.(int64)
	if !ok {
		return 0
	}
	return userID
}
