package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
)

// 役割は発行側（IDプロバイダ）が決める。ここでは検証のみ。
const (
	RoleAdmin      = "admin"
	RoleGovernment = "government"
	RoleUser       = "user"
)

// Principal: 認証済み呼び出し元。トークン検証済みの値だけを持つ。
type Principal struct {
	UserID uint64
	Role   string
}

// RequireAuth: Authorization: Bearer <token> を検証して context に sub/role を詰める。
// act クレームが false のアカウントは境界で ACCOUNT_INACTIVE として拒否する。
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			// alg 固定（none攻撃とか回避）
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing sub"})
			return
		}
		userID, err := strconv.ParseUint(sub, 10, 64)
		if err != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid sub"})
			return
		}

		// 無効化済みアカウントは発行側が act=false で示す
		if actAny, has := claims["act"]; has {
			if act, ok := actAny.(bool); ok && !act {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{
					"code":    "ACCOUNT_INACTIVE",
					"message": "account is inactive",
				}})
				return
			}
		}

		role := ""
		if roleAny, has := claims["role"]; has {
			if roleStr, ok := roleAny.(string); ok {
				role = roleStr
			}
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxRoleKey, role)
		c.Next()
	}
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		v, ok := c.Get(CtxRoleKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing role"})
			return
		}

		role, ok := v.(string)
		if !ok || role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid role"})
			return
		}

		_, allowed := roleSet[role]
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// PrincipalFrom: RequireAuth が詰めた値を取り出す。未認証ルートで呼ぶと ok=false。
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	idAny, ok := c.Get(CtxUserIDKey)
	if !ok {
		return Principal{}, false
	}
	userID, ok := idAny.(uint64)
	if !ok || userID == 0 {
		return Principal{}, false
	}

	role := ""
	if v, has := c.Get(CtxRoleKey); has {
		if s, ok := v.(string); ok {
			role = s
		}
	}
	return Principal{UserID: userID, Role: role}, true
}
