package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const actorKey = "actor"

// Claims is the bearer token payload issued by the identity service.
// Subject carries the numeric user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func knownRole(role string) bool {
	return role == model.RoleStudent || role == model.RoleTeacher || role == model.RoleAdmin
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Response{
		Success: false,
		Message: message,
		Code:    apperror.KindUnauthorized,
	})
}

// Authenticate validates an HS256 bearer token and stores the caller's Actor.
func Authenticate(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "Not authorized, no token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("Rejected bearer token")
			abortUnauthorized(c, "Not authorized, token failed")
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || userID == 0 || !knownRole(claims.Role) {
			abortUnauthorized(c, "Not authorized, invalid token claims")
			return
		}

		c.Set(actorKey, model.Actor{UserID: uint(userID), Role: claims.Role})
		c.Next()
	}
}

// Authorize lets the request through only for the given roles.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abortUnauthorized(c, "Not authorized")
			return
		}
		if !slices.Contains(roles, actor.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Response{
				Success: false,
				Message: "User role " + actor.Role + " is not authorized to access this route",
				Code:    apperror.KindForbidden,
			})
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
