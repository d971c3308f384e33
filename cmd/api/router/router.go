package router

import (
	"FoodTok.com/cmd/api/handlers"
	"FoodTok.com/cmd/api/router/flowlimit"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/hertz-contrib/jwt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes 受流控保护的接口
var Routes = []string{
	"/v1/user/create",
	"/v1/user/login",
	"/v1/user/info",
	"/v1/relation/follow",
	"/v1/relation/unfollow",
	"/v1/reconcile/user",
	"/v1/reconcile/all",
}

func Register(r *server.Hertz, auth *jwt.HertzJWTMiddleware) {
	r.GET("/metrics", adaptor.HertzHandler(promhttp.Handler()))

	v1 := r.Group("/v1", flowlimit.Resource())

	user := v1.Group("/user")
	user.POST("/create", handlers.CreateUser)
	user.POST("/login", auth.LoginHandler)
	user.GET("/info", auth.MiddlewareFunc(), handlers.UserInfo)

	relation := v1.Group("/relation", auth.MiddlewareFunc())
	relation.POST("/follow", handlers.FollowUser)
	relation.POST("/unfollow", handlers.UnfollowUser)

	reconcile := v1.Group("/reconcile", auth.MiddlewareFunc())
	reconcile.POST("/user", handlers.RecalculateUserTotalLikes)
	reconcile.POST("/all", handlers.ForceReconcileAllUsers)
}
