package flowlimit

import (
	"context"

	"FoodTok.com/cmd/api/handlers"
	"FoodTok.com/pkg/errno"
	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/base"
	"github.com/alibaba/sentinel-golang/core/flow"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// LoadRules 每个资源每秒最多 qps 次调用, 超出直接拒绝
func LoadRules(qps float64, resources ...string) error {
	rules := make([]*flow.Rule, 0, len(resources))
	for _, r := range resources {
		rules = append(rules, &flow.Rule{
			Resource:               r,
			TokenCalculateStrategy: flow.Direct,
			ControlBehavior:        flow.Reject,
			Threshold:              qps,
			StatIntervalInMs:       1000,
		})
	}
	_, err := flow.LoadRules(rules)
	return err
}

// Resource 以路由路径作为sentinel资源名, 被限流时返回 resource-exhausted
func Resource() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		resource := c.FullPath()
		e, blocked := sentinel.Entry(resource, sentinel.WithTrafficType(base.Inbound))
		if blocked != nil {
			hlog.CtxWarnf(ctx, "%s rejected by flow control: %s", resource, blocked.BlockMsg())
			handlers.SendResponse(c, errno.ResourceExhaustedErr, nil)
			c.Abort()
			return
		}
		defer e.Exit()
		c.Next(ctx)
	}
}
