package main

import (
	"context"
	"fmt"

	"FoodTok.com/cmd/api/handlers"
	"FoodTok.com/cmd/api/router"
	"FoodTok.com/cmd/api/router/authfunc"
	"FoodTok.com/cmd/api/router/flowlimit"
	"FoodTok.com/config"
	"FoodTok.com/config/jaeger"
	"FoodTok.com/config/pprof"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/notify"
	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/redis/go-redis/v9"
)

// 每个接口每秒允许的请求数
const flowQPS = 200

func Init() {
	config.Init()
	db.Init()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.ConfigInfo.Redis.Addr,
		Password: config.ConfigInfo.Redis.Password,
		DB:       config.ConfigInfo.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		hlog.Warnf("redis ping failed, notifications will only be stored: %v", err)
	}
	updater := counter.NewUpdater(db.DB, config.RetryPolicy(), nil)
	handlers.Init(db.DB, updater, notify.NewRedisPublisher(rdb))

	if err := sentinel.InitDefault(); err != nil {
		hlog.Fatalf("init sentinel failed: %v", err)
	}
	if err := flowlimit.LoadRules(flowQPS, router.Routes...); err != nil {
		hlog.Fatalf("load flow rules failed: %v", err)
	}
}

func main() {
	Init()
	pprof.Load(config.ConfigInfo.Server.PprofAddr)
	_, closer := jaeger.InitJaeger(constants.ApiServiceName)
	defer closer.Close()

	r := server.New(
		server.WithHostPorts(config.ConfigInfo.Server.ApiAddr),
		server.WithHandleMethodNotAllowed(true),
	)

	// 错误处理
	r.Use(recovery.Recovery(recovery.WithRecoveryHandler(
		func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte) {
			hlog.SystemLogger().CtxErrorf(ctx, "[Recovery] err=%v\nstack=%s", err, stack)
			c.JSON(consts.StatusInternalServerError, handlers.Response{
				Code:    errno.ServiceErrCode,
				Status:  errno.StatusInternal,
				Message: fmt.Sprintf("[Recovery] err=%v", err),
			})
		})))

	auth, err := authfunc.NewJWT(config.ConfigInfo.Jwt.Secret, config.JwtTimeout())
	if err != nil {
		hlog.Fatalf("init jwt failed: %v", err)
	}

	// 注册路由
	router.Register(r, auth)
	r.Spin()
}
