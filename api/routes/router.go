package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmacare/pharmacare-backend/api/controllers"
	"github.com/pharmacare/pharmacare-backend/api/middleware"
	"github.com/pharmacare/pharmacare-backend/internal/auth"
	cartsvc "github.com/pharmacare/pharmacare-backend/internal/cart"
	categorysvc "github.com/pharmacare/pharmacare-backend/internal/categories"
	checkoutsvc "github.com/pharmacare/pharmacare-backend/internal/checkout"
	ordersvc "github.com/pharmacare/pharmacare-backend/internal/orders"
	"github.com/pharmacare/pharmacare-backend/internal/prescriptions"
	productsvc "github.com/pharmacare/pharmacare-backend/internal/products"
	"github.com/pharmacare/pharmacare-backend/internal/users"
	"github.com/pharmacare/pharmacare-backend/pkg/auth/session"
	"github.com/pharmacare/pharmacare-backend/pkg/config"
	"github.com/pharmacare/pharmacare-backend/pkg/db"
	"github.com/pharmacare/pharmacare-backend/pkg/logger"
	"github.com/pharmacare/pharmacare-backend/pkg/metrics"
	"github.com/pharmacare/pharmacare-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. The router stays a pure
// wiring layer so tests can stand it up with fakes.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger db.Pinger
	Redis    *redis.Client

	Sessions session.AccessSessionChecker

	AuthService     auth.Service
	UserService     users.Service
	ProductService  productsvc.Service
	CategoryService categorysvc.Service
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	OrderService    ordersvc.Service

	PrescriptionFiles prescriptions.Store

	HTTPMetrics     *metrics.HTTPMetrics
	MetricsRegistry *prometheus.Registry
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.Redis))
	})

	if d.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.Redis, logg),
			middleware.Idempotency(d.Redis, logg),
		).Post("/register", controllers.AuthRegister(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.AuthService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(d.ProductService, logg))
		r.Get("/{productID}", controllers.ProductDetail(d.ProductService, logg))
	})
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.CategoryList(d.CategoryService, logg))
		r.Get("/{categoryID}", controllers.CategoryDetail(d.CategoryService, logg))
	})

	// Carts work for both signed-in customers and anonymous visitors. The
	// guest session middleware mints the X-Session-Token that identifies an
	// anonymous cart across requests.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.GuestSession())
		r.Get("/", controllers.CartFetch(d.CartService, logg))
		r.Post("/items", controllers.CartAddItem(d.CartService, logg))
		r.Patch("/items/{lineID}", controllers.CartUpdateItem(d.CartService, logg))
		r.Delete("/items/{lineID}", controllers.CartRemoveItem(d.CartService, logg))
		r.Delete("/", controllers.CartClear(d.CartService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		r.With(middleware.Idempotency(d.Redis, logg)).
			Post("/api/v1/checkout", controllers.Checkout(d.CheckoutService, cfg.Prescriptions, logg))

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.MyOrders(d.OrderService, logg))
			r.Get("/{orderID}", controllers.MyOrderDetail(d.OrderService, logg))
			r.Get("/{orderID}/prescription", controllers.MyOrderPrescription(d.OrderService, d.PrescriptionFiles, logg))
		})

		r.Route("/api/v1/profile", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(d.UserService, logg))
			r.Patch("/", controllers.ProfileUpdate(d.UserService, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.AdminOnly(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(d.ProductService, logg))
			r.Post("/", controllers.AdminCreateProduct(d.ProductService, logg))
			r.Patch("/{productID}", controllers.AdminUpdateProduct(d.ProductService, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(d.ProductService, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateCategory(d.CategoryService, logg))
			r.Patch("/{categoryID}", controllers.AdminUpdateCategory(d.CategoryService, logg))
			r.Delete("/{categoryID}", controllers.AdminDeleteCategory(d.CategoryService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(d.OrderService, logg))
			r.Get("/{orderID}", controllers.AdminOrderDetail(d.OrderService, logg))
			r.Patch("/{orderID}/status", controllers.AdminUpdateOrderStatus(d.OrderService, logg))
			r.Get("/{orderID}/prescription", controllers.AdminOrderPrescription(d.OrderService, d.PrescriptionFiles, logg))
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(d.UserService, logg))
			r.Patch("/{userID}/role", controllers.AdminUpdateUserRole(d.UserService, logg))
		})
	})

	return r
}
