package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/storefrontlab/storefront-backend/internal/address"
	"github.com/storefrontlab/storefront-backend/internal/cart"
	"github.com/storefrontlab/storefront-backend/internal/catalog"
	"github.com/storefrontlab/storefront-backend/internal/checkout"
	"github.com/storefrontlab/storefront-backend/internal/config"
	"github.com/storefrontlab/storefront-backend/internal/order"
	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
	"github.com/storefrontlab/storefront-backend/internal/stock"
	"github.com/storefrontlab/storefront-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	app := fiber.New()
	setupCORS(app)

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()

	bootstrapSchema(db)

	rates := pricing.Rates{
		TaxRate:         cfg.TaxRate,
		ShippingFee:     cfg.ShippingFee,
		FreeShippingMin: cfg.FreeShippingMin,
	}

	userService := user.NewService(user.NewPostgresRepository(db))
	userHandler := user.NewHandler(userService)

	catalogService := catalog.NewService(catalog.NewPostgresRepository(db))
	catalogHandler := catalog.NewHandler(catalogService)

	stockService := stock.NewService(stock.NewPostgresRepository(db))
	stockHandler := stock.NewHandler(stockService)

	cartRepo := cart.NewPostgresRepository(db, cfg.CartLockTTL)
	cartValidator := cart.NewValidator(cartRepo, catalogService)
	cartService := cart.NewService(cartRepo, catalogService, rates)
	cartHandler := cart.NewHandler(cartService, cartValidator)

	addressService := address.NewService(address.NewPostgresRepository(db))
	addressHandler := address.NewHandler(addressService)

	gateway := payment.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewaySecret)
	paymentRepo := payment.NewPostgresRepository(db)

	orderService := order.NewService(order.NewPostgresRepository(db), stockService, gateway, paymentRepo)
	orderHandler := order.NewHandler(orderService)

	checkoutService := checkout.NewService(checkout.Deps{
		Carts:     cartRepo,
		Validator: cartValidator,
		Catalog:   catalogService,
		Stock:     stockService,
		Orders:    orderService,
		Gateway:   gateway,
		Payments:  paymentRepo,
		Addresses: addressService,
		Rates:     rates,
		Secret:    cfg.GatewaySecret,
		Currency:  cfg.Currency,
	})
	checkoutHandler := checkout.NewHandler(checkoutService)

	// public surface: browsing and auth never need a token
	userHandler.RegisterPublicRoutes(app)
	catalogHandler.RegisterPublicRoutes(app)

	app.Use(checkMiddleware)
	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		Filter: func(c *fiber.Ctx) bool {
			// unauthenticated variant browsing
			return c.Method() == "GET" && strings.HasPrefix(c.Path(), "/api/v1/variants")
		},
	}))

	userHandler.RegisterProtectedRoutes(app)
	addressHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	checkoutHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	catalogHandler.RegisterProtectedRoutes(app)
	stockHandler.RegisterProtectedRoutes(app)

	app.Listen(cfg.Addr)
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

func mustOpenDB(dbURL string) *sql.DB {
	if dbURL == "" {
		panic("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(err)
	}

	return db
}

// bootstrapSchema creates every table the repositories expect. Statements
// are idempotent so restarts are safe.
func bootstrapSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			"userId" SERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			"firstName" TEXT,
			"lastName" TEXT,
			phone TEXT,
			gender TEXT,
			"mainAddressId" INT,
			"createAt" TEXT,
			"updateAt" TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS address (
			address_id SERIAL PRIMARY KEY,
			user_id INT NOT NULL,
			address_desc TEXT,
			phone TEXT,
			address_name TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS variants (
			"variantID" SERIAL PRIMARY KEY,
			"productName" TEXT NOT NULL,
			size TEXT,
			color TEXT,
			"unitPrice" double precision NOT NULL DEFAULT 0,
			"discountPercent" double precision NOT NULL DEFAULT 0,
			stock INT NOT NULL DEFAULT 0,
			"isActive" BOOLEAN NOT NULL DEFAULT TRUE,
			"lowStockThreshold" INT NOT NULL DEFAULT 0,
			"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
			"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_movements (
			"movementID" SERIAL PRIMARY KEY,
			"variantID" INT NOT NULL,
			type TEXT NOT NULL,
			quantity INT NOT NULL,
			"stockBefore" INT NOT NULL,
			"stockAfter" INT NOT NULL,
			"orderRef" TEXT,
			"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			"userID" INT PRIMARY KEY,
			items jsonb NOT NULL DEFAULT '[]',
			version INT NOT NULL DEFAULT 0,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			"lockedAt" TIMESTAMPTZ,
			"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			"intentID" TEXT PRIMARY KEY,
			"paymentID" TEXT,
			amount double precision NOT NULL DEFAULT 0,
			currency TEXT,
			method TEXT,
			status TEXT NOT NULL,
			"orderNumber" TEXT,
			"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
			"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			"orderNumber" TEXT PRIMARY KEY,
			"userID" INT NOT NULL,
			items jsonb NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			"paymentStatus" TEXT NOT NULL,
			"paymentMethod" TEXT,
			"intentID" TEXT,
			breakdown jsonb NOT NULL DEFAULT '{}',
			"shippingAddress" jsonb NOT NULL DEFAULT '{}',
			"billingAddress" jsonb NOT NULL DEFAULT '{}',
			history jsonb NOT NULL DEFAULT '[]',
			"returnReason" TEXT,
			"refundID" TEXT,
			"createdAt" TIMESTAMPTZ NOT NULL DEFAULT now(),
			"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders ("userID")`,
		`CREATE INDEX IF NOT EXISTS orders_intent_idx ON orders ("intentID")`,
		`CREATE INDEX IF NOT EXISTS movements_variant_idx ON inventory_movements ("variantID")`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			panic(err)
		}
	}
}

func checkMiddleware(c *fiber.Ctx) error {
	start := time.Now()
	fmt.Printf("URL = %s, Method = %s, Start Time = %v\n", c.OriginalURL(), c.Method(), start)
	return c.Next()
}
