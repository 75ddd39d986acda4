package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"github.com/zjoart/go-intouch-transfer/pkg/utils"
)

func JWTMiddleware(tokens *TokenIssuer, userRepo user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.WriteError(w, r, apperr.Unauthorized("No token provided"))
				return
			}

			userID, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				utils.WriteError(w, r, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			usr, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Warn("Token subject not found", logger.Fields{logger.UserIdKey: userID, logger.ErrorKey: err.Error()})
				utils.WriteError(w, r, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), utils.UserKey, *usr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
