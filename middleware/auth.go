package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// Key type for context
type contextKey string

const UserContextKey = contextKey("user")

// AuthMiddleware resolves bearer tokens to users. The user is re-read from
// the store on every request so a deleted account cannot keep using a token.
type AuthMiddleware struct {
	secret []byte
	users  *mongo.Collection
}

// NewAuthMiddleware builds the middleware around the users collection.
func NewAuthMiddleware(secret []byte, users *mongo.Collection) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, users: users}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// requestToken picks the credential for a request. The "token" query
// parameter is honoured only where allowQuery is set: query strings end up in
// request logs, so ordinary routes never read it.
func requestToken(r *http.Request, allowQuery bool) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// Protect verifies the bearer token, loads the referenced user and attaches
// it to the request context.
func (am *AuthMiddleware) Protect(next http.Handler) http.Handler {
	return am.protect(next, false)
}

// ProtectQuery is Protect with the "token" query parameter accepted as a
// fallback. Reserved for the websocket route, where browser clients cannot
// set headers.
func (am *AuthMiddleware) ProtectQuery(next http.Handler) http.Handler {
	return am.protect(next, true)
}

func (am *AuthMiddleware) protect(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := requestToken(r, allowQuery)
		if tokenStr == "" {
			utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		claims, err := utils.ParseJWT(am.secret, tokenStr)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		var user models.User
		err = am.users.FindOne(r.Context(), bson.M{"_id": userID}).Decode(&user)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "User no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestrictTo rejects callers whose role is not in the allowed set. It must
// run after Protect.
func RestrictTo(roles ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				utils.WriteError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, http.StatusForbidden, "You do not have permission to perform this action")
		})
	}
}

// UserFromContext returns the authenticated user attached by Protect, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}
