package routes

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/zjoart/go-intouch-transfer/internal/auth"
	"github.com/zjoart/go-intouch-transfer/internal/middleware"
	"github.com/zjoart/go-intouch-transfer/internal/transfer"
	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"github.com/zjoart/go-intouch-transfer/pkg/utils"
	"golang.org/x/time/rate"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Users    user.Repository
	Tokens   *auth.TokenIssuer
	Auth     *auth.Handler
	Transfer *transfer.Handler
}

func RegisterRoutes(ctx context.Context, r *mux.Router, cfg config.Config, deps Dependencies) http.Handler {
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.BuildSuccessResponse(w, http.StatusOK, "OK", map[string]string{"status": "up"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit), cfg.RateBurst)
	authR := api.PathPrefix("/auth").Subrouter()
	authR.Use(limiter.Limit)
	authR.HandleFunc("/register", deps.Auth.Register).Methods("POST")
	authR.HandleFunc("/verify-otp", deps.Auth.VerifyOTP).Methods("POST")
	authR.HandleFunc("/login", deps.Auth.Login).Methods("POST")

	// provider callbacks carry their own signature instead of a bearer token
	api.HandleFunc("/webhooks/intouch", deps.Transfer.IntouchWebhook).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.JWTMiddleware(deps.Tokens, deps.Users))
	protected.HandleFunc("/transfers", deps.Transfer.CreateTransfer).Methods("POST")
	protected.HandleFunc("/transfers/{id}/status", deps.Transfer.GetTransferStatus).Methods("GET")
	protected.HandleFunc("/transactions", deps.Transfer.GetTransactions).Methods("GET")

	if cfg.Env != "production" {
		r.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
			content, err := os.ReadFile("docs/swagger.yaml")
			if err != nil {
				logger.Error("Failed to read swagger.yaml", logger.Fields{"error": err.Error()})
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			modifiedContent := strings.ReplaceAll(string(content), "{{BASE_URL}}", "/")
			modifiedContent = strings.ReplaceAll(modifiedContent, "{{PHONE_PREFIX}}", cfg.PhonePrefix)

			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte(modifiedContent))
		})

		r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/swagger.yaml"),
		))
		logger.Info("Swagger documentation enabled at /swagger/index.html")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.BuildErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})

	corsObj := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return corsObj(r)
}
