package handlers

import (
	"context"

	"FoodTok.com/cmd/reconcile/service"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/errno"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
)

// RecalculateUserTotalLikes userId 为空时重算调用者自己
func RecalculateUserTotalLikes(ctx context.Context, c *app.RequestContext) {
	var param ReconcileUserParam
	if err := c.Bind(&param); err != nil {
		SendResponse(c, errno.RequestErr.WithMessage(err.Error()), nil)
		return
	}
	caller, err := CurrentUserID(c)
	if err != nil {
		SendResponse(c, err, nil)
		return
	}
	if param.UserID == "" {
		param.UserID = caller
	}
	out, err := service.NewReconcileService(updater, constants.MaxWritesPerBatch).ForceReconcile(ctx, param.UserID)
	if err != nil {
		hlog.CtxErrorf(ctx, "reconcile %s: %v", param.UserID, err)
		SendResponse(c, err, nil)
		return
	}
	SendResponse(c, errno.Success, utils.H{"totalLikes": out.NewValue})
}

func ForceReconcileAllUsers(ctx context.Context, c *app.RequestContext) {
	if _, err := CurrentUserID(c); err != nil {
		SendResponse(c, err, nil)
		return
	}
	results, err := service.NewReconcileService(updater, constants.MaxWritesPerBatch).ForceReconcileAll(ctx)
	if err != nil {
		hlog.CtxErrorf(ctx, "reconcile all users: %v", err)
		SendResponse(c, err, nil)
		return
	}
	SendResponse(c, errno.Success, utils.H{"results": results})
}
