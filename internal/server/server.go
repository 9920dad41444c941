package server

import (
	"context"
	"net/http"
	"time"

	"app/internal/handler"
	appmw "app/internal/middleware"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Webhook      *handler.WebhookHandler
	Wishlist     *handler.WishlistHandler
	Address      *handler.AddressHandler
	AdminProduct *handler.AdminProductHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
	Analytics    *handler.AnalyticsHandler
}

type Server struct {
	echo *echo.Echo
}

func New(jwtSecret string, userRepo repository.UserRepository, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(50))))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	//認証なし
	h.Product.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e)
	h.Webhook.RegisterRoutes(e)

	//要ログイン
	me := e.Group("/me", appmw.AuthJWT(jwtSecret), appmw.TokenVersionGuard(userRepo))
	h.Cart.RegisterRoutes(me)
	h.Order.RegisterRoutes(me)
	h.Wishlist.RegisterRoutes(me)
	h.Address.RegisterRoutes(me)

	//要ADMIN
	admin := e.Group("/admin", appmw.AuthJWT(jwtSecret), appmw.TokenVersionGuard(userRepo), appmw.AdminRoleGuard())
	h.AdminProduct.RegisterRoutes(admin)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
	h.Analytics.RegisterRoutes(admin)

	return &Server{echo: e}
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
