package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahilkhatri/pharmakart-backend/api/controllers"
	"github.com/sahilkhatri/pharmakart-backend/api/middleware"
	authsvc "github.com/sahilkhatri/pharmakart-backend/internal/auth"
	cartsvc "github.com/sahilkhatri/pharmakart-backend/internal/cart"
	checkoutsvc "github.com/sahilkhatri/pharmakart-backend/internal/checkout"
	deliverysvc "github.com/sahilkhatri/pharmakart-backend/internal/delivery"
	medicinessvc "github.com/sahilkhatri/pharmakart-backend/internal/medicines"
	notifsvc "github.com/sahilkhatri/pharmakart-backend/internal/notifications"
	orderssvc "github.com/sahilkhatri/pharmakart-backend/internal/orders"
	paymentssvc "github.com/sahilkhatri/pharmakart-backend/internal/payments"
	refundssvc "github.com/sahilkhatri/pharmakart-backend/internal/refunds"
	stocksvc "github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/redis"
)

// Services bundles every domain service the router exposes.
type Services struct {
	Auth          *authsvc.Service
	Orders        orderssvc.Service
	Payments      paymentssvc.Service
	Delivery      deliverysvc.Service
	Refunds       refundssvc.Service
	Notifications notifsvc.Service
	Cart          cartsvc.Service
	Checkout      checkoutsvc.Service
	Medicines     medicinessvc.Service
	Stock         stocksvc.Service
}

// NewRouter assembles the full HTTP surface: health probes, metrics, the
// public auth endpoints, and the role-gated order lifecycle API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/register", controllers.Register(svcs.Auth, logg))
		r.Post("/login", controllers.Login(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		// Catalog, readable by any authenticated caller.
		r.Get("/medicines", controllers.MedicineSearch(svcs.Medicines, logg))
		r.Get("/medicines/{id}", controllers.MedicineGet(svcs.Medicines, logg))

		// Order reads are role-scoped inside the controller.
		r.Get("/orders", controllers.OrderList(svcs.Orders, logg))
		r.Get("/orders/{code}", controllers.OrderGet(svcs.Orders, logg))

		// Customer inbox.
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.UserNotificationList(svcs.Notifications, logg))
			r.Post("/{id}/read", controllers.UserNotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.UserNotificationMarkAllRead(svcs.Notifications, logg))
			r.Delete("/{id}", controllers.UserNotificationDelete(svcs.Notifications, logg))
		})

		// Customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleCustomer), logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svcs.Cart, logg))
				r.Post("/", controllers.CartAddItem(svcs.Cart, logg))
				r.Post("/clear", controllers.CartClear(svcs.Cart, logg))
				r.Patch("/items/{id}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{id}", controllers.CartRemoveItem(svcs.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			r.Post("/orders", controllers.OrderCreate(svcs.Orders, logg))
			r.Post("/orders/{code}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			r.Post("/orders/{code}/payment", controllers.PaymentCreate(svcs.Payments, logg))
			r.Post("/orders/{code}/payment/verify", controllers.PaymentVerify(svcs.Payments, logg))
			r.Post("/orders/{code}/refund", controllers.RefundRequest(svcs.Refunds, logg))
			r.Post("/payments/cart", controllers.CartPaymentCreate(svcs.Payments, logg))
			r.Post("/payments/cart/verify", controllers.PaymentVerify(svcs.Payments, logg))
		})

		// Pharmacy surface.
		r.Route("/pharmacy", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRolePharmacy), logg))

			r.Post("/orders/{code}/decision", controllers.OrderDecision(svcs.Orders, logg))
			r.Post("/orders/{code}/complete", controllers.OrderComplete(svcs.Orders, logg))

			r.Route("/medicines", func(r chi.Router) {
				r.Get("/", controllers.MedicineList(svcs.Medicines, logg))
				r.Post("/", controllers.MedicineCreate(svcs.Medicines, logg))
				r.Patch("/{id}", controllers.MedicineUpdate(svcs.Medicines, logg))
				r.Delete("/{id}", controllers.MedicineDelete(svcs.Medicines, logg))
				r.Post("/{id}/restock", controllers.StockRestock(svcs.Stock, logg))
				r.Put("/{id}/stock", controllers.StockSetLevels(svcs.Stock, logg))
			})
			r.Get("/stock", controllers.StockList(svcs.Stock, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.PharmacyNotificationList(svcs.Notifications, logg))
				r.Post("/{id}/read", controllers.PharmacyNotificationMarkRead(svcs.Notifications, logg))
				r.Post("/read-all", controllers.PharmacyNotificationMarkAllRead(svcs.Notifications, logg))
				r.Delete("/{id}", controllers.PharmacyNotificationDelete(svcs.Notifications, logg))
			})
		})

		// Delivery partner surface.
		r.Route("/delivery/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleDeliveryPartner), logg))

			r.Get("/", controllers.DeliveryListClaimable(svcs.Delivery, logg))
			r.Post("/{code}/claim", controllers.DeliveryClaim(svcs.Delivery, logg))
			r.Post("/{code}/release", controllers.DeliveryRelease(svcs.Delivery, logg))
			r.Post("/{code}/status", controllers.DeliveryStatusUpdate(svcs.Delivery, logg))
			r.Post("/{code}/otp", controllers.DeliveryOTPGenerate(svcs.Delivery, logg))
			r.Post("/{code}/otp/verify", controllers.DeliveryOTPVerify(svcs.Delivery, logg))
		})
	})

	return r
}
