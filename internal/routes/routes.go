package routes

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/vastra/internal/config"
	"github.com/example/vastra/internal/handlers"
	"github.com/example/vastra/internal/middleware"
	"github.com/example/vastra/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	validate := validator.New()

	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	walletService := services.NewWalletService(db)
	offerService := services.NewOfferService(db)
	productService := services.NewProductService(db)
	notificationService := services.NewNotificationService(db)
	checkoutService := services.NewCheckoutService(db, walletService, offerService, productService, notificationService, telegramService)

	authHandler := handlers.NewAuthHandler(db, cfg, validate)
	coinsHandler := handlers.NewCoinsHandler(walletService, validate)
	offersHandler := handlers.NewOffersHandler(offerService, validate)
	ordersHandler := handlers.NewOrdersHandler(db, checkoutService, validate)
	notificationsHandler := handlers.NewNotificationsHandler(notificationService, validate)
	productsHandler := handlers.NewProductsHandler(db, productService, validate)
	profileHandler := handlers.NewProfileHandler(db)
	adminHandler := handlers.NewAdminHandler(db, checkoutService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productsHandler.ListProducts)
	products.Get("/:id", productsHandler.GetProduct)

	// Offer eligibility check (coupon entry and offer selection both land here)
	api.Post("/offers/check", offersHandler.CheckOffer)

	// Checkout accepts guests; coin payments require a valid token
	api.Post("/orders", middleware.OptionalAuthMiddleware(cfg), ordersHandler.CreateOrder)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)

	protected.Get("/coins", coinsHandler.GetCoins)

	protected.Get("/orders", ordersHandler.ListOrders)
	protected.Get("/orders/:id", ordersHandler.GetOrder)

	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)
	protected.Get("/profile/wishlist", profileHandler.ListWishlist)
	protected.Post("/profile/wishlist", profileHandler.AddToWishlist)
	protected.Delete("/profile/wishlist/:productId", profileHandler.RemoveFromWishlist)
	protected.Get("/profile/cart", profileHandler.GetCart)
	protected.Put("/profile/cart", profileHandler.PutCart)

	protected.Get("/notifications", notificationsHandler.ListNotifications)
	protected.Patch("/notifications/:id/read", notificationsHandler.MarkRead)

	// Admin back-office
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg))

	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/customers", adminHandler.ListCustomers)

	// Coin mutations credit or debit arbitrary wallets, so they stay in the
	// back-office surface rather than the customer one.
	admin.Get("/coins", coinsHandler.ListWallets)
	admin.Post("/coins", coinsHandler.MutateCoins)

	admin.Get("/offers", offersHandler.ListOffers)
	admin.Post("/offers", offersHandler.CreateOffer)
	admin.Get("/offers/:id", offersHandler.GetOffer)
	admin.Put("/offers/:id", offersHandler.UpdateOffer)
	admin.Patch("/offers/:id", offersHandler.PatchOffer)
	admin.Delete("/offers/:id", offersHandler.DeleteOffer)
	admin.Get("/offers/:id/usages", offersHandler.ListOfferUsages)

	admin.Get("/orders", ordersHandler.AdminListOrders)
	admin.Patch("/orders/:id", ordersHandler.AdminUpdateOrder)

	admin.Post("/notifications", notificationsHandler.Send)

	admin.Post("/products", productsHandler.CreateProduct)
	admin.Put("/products/:id", productsHandler.UpdateProduct)
	admin.Delete("/products/:id", productsHandler.DeleteProduct)
	admin.Patch("/products/:id/stock", productsHandler.AdjustStock)

	admin.Get("/reconciliation", adminHandler.ListReconciliationTasks)
	admin.Post("/reconciliation/:id/retry", adminHandler.RetryReconciliationTask)
}
