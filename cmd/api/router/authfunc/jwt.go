package authfunc

import (
	"context"
	"errors"
	"time"

	"FoodTok.com/cmd/api/handlers"
	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/errno"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/hertz-contrib/jwt"
)

const authErrKey = "auth_err"

// NewJWT 登录签发token, 其余接口通过 MiddlewareFunc 校验并写入 uid
func NewJWT(secret string, timeout time.Duration) (*jwt.HertzJWTMiddleware, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:         "foodtok",
		Key:           []byte(secret),
		Timeout:       timeout,
		MaxRefresh:    timeout,
		IdentityKey:   constants.IdentityKey,
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			user, err := handlers.LoginAuthenticator(ctx, c)
			if err != nil {
				c.Set(authErrKey, err)
				return nil, err
			}
			return user, nil
		},
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if u, ok := data.(*model.User); ok {
				return jwt.MapClaims{constants.IdentityKey: u.ID}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			uid, _ := claims[constants.IdentityKey].(string)
			return uid
		},
		LoginResponse: func(ctx context.Context, c *app.RequestContext, code int, token string, expire time.Time) {
			handlers.SendResponse(c, errno.Success, utils.H{
				"token":  token,
				"expire": expire.Format(time.RFC3339),
			})
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			if v, ok := c.Get(authErrKey); ok {
				if err, ok := v.(error); ok {
					handlers.SendResponse(c, err, nil)
					return
				}
			}
			handlers.SendResponse(c, errno.UnauthenticatedErr.WithMessage(message), nil)
		},
		HTTPStatusMessageFunc: func(e error, ctx context.Context, c *app.RequestContext) string {
			return e.Error()
		},
	})
}
