package handlers

import (
	"context"

	"FoodTok.com/cmd/relation/service"
	"FoodTok.com/pkg/errno"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
)

func relationAction(ctx context.Context, c *app.RequestContext, action func(s *service.RelationService, from, to string) error) {
	var param RelationParam
	if err := c.Bind(&param); err != nil {
		SendResponse(c, errno.RequestErr.WithMessage(err.Error()), nil)
		return
	}
	userID, err := CurrentUserID(c)
	if err != nil {
		SendResponse(c, err, nil)
		return
	}
	if err := action(service.NewRelationService(ctx, updater, publisher), userID, param.FollowingID); err != nil {
		hlog.CtxInfof(ctx, "relation %s -> %s: %v", userID, param.FollowingID, err)
		SendResponse(c, err, nil)
		return
	}
	SendResponse(c, errno.Success, utils.H{"success": true})
}

func FollowUser(ctx context.Context, c *app.RequestContext) {
	relationAction(ctx, c, (*service.RelationService).FollowUser)
}

func UnfollowUser(ctx context.Context, c *app.RequestContext) {
	relationAction(ctx, c, (*service.RelationService).UnfollowUser)
}
