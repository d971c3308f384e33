// Package dispatcher routes change events to the handler registered for the
// document path they refer to.
package dispatcher

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"

	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/mq"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// Params 路径中 {name} 段匹配到的值
type Params map[string]string

type HandlerFunc func(ctx context.Context, event *mq.ChangeEvent, params Params) error

// Deduper 记录已经处理完的事件id, 用来在访问数据库之前跳过大部分重复投递
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkDone(ctx context.Context, eventID string) error
}

type route struct {
	pattern  string
	segments []string
	handler  HandlerFunc
}

type Dispatcher struct {
	routes []route
	dedupe Deduper
}

// New dedupe 可以为 nil
func New(dedupe Deduper) *Dispatcher {
	return &Dispatcher{dedupe: dedupe}
}

// Register pattern 形如 videos/{videoId}/likes/{userId}
func (d *Dispatcher) Register(pattern string, handler HandlerFunc) {
	d.routes = append(d.routes, route{
		pattern:  pattern,
		segments: strings.Split(strings.Trim(pattern, "/"), "/"),
		handler:  handler,
	})
}

func (r *route) match(path string) (Params, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(r.segments) {
		return nil, false
	}
	params := Params{}
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if parts[i] == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// lookup 按注册顺序返回第一个匹配的路由
func (d *Dispatcher) lookup(path string) (*route, Params) {
	for i := range d.routes {
		if params, ok := d.routes[i].match(path); ok {
			return &d.routes[i], params
		}
	}
	return nil, nil
}

// Match 返回匹配的模式和参数
func (d *Dispatcher) Match(path string) (string, Params, bool) {
	r, params := d.lookup(path)
	if r == nil {
		return "", nil, false
	}
	return r.pattern, params, true
}

// HandleChangeEvent 只有可重试的错误会返回给调用方, 其余错误和panic都在这里记录后吸收
func (d *Dispatcher) HandleChangeEvent(ctx context.Context, event *mq.ChangeEvent) error {
	if event == nil || event.Path == "" {
		hlog.CtxWarnf(ctx, "dispatcher: dropping event without path")
		return nil
	}
	if event.Kind() == mq.ChangeMalformed {
		hlog.CtxWarnf(ctx, "dispatcher: event %s on %s has neither before nor after", event.EventID, event.Path)
		return nil
	}
	r, params := d.lookup(event.Path)
	if r == nil {
		hlog.CtxInfof(ctx, "dispatcher: no handler for %s", event.Path)
		return nil
	}

	if d.dedupe != nil && event.EventID != "" {
		seen, err := d.dedupe.Seen(ctx, event.EventID)
		if err != nil {
			hlog.CtxWarnf(ctx, "dispatcher: dedupe lookup for %s failed: %v", event.EventID, err)
		} else if seen {
			hlog.CtxInfof(ctx, "dispatcher: skip duplicate event %s", event.EventID)
			return nil
		}
	}

	err := d.invoke(ctx, r, event, params)
	if err != nil && errno.IsRetryable(err) {
		return err
	}
	if err != nil {
		if errors.Is(err, errno.InvariantErr) || errors.Is(err, errno.NotFoundErr) {
			hlog.CtxWarnf(ctx, "dispatcher: %s %s aborted: %v", r.pattern, event.EventID, err)
		} else {
			hlog.CtxErrorf(ctx, "dispatcher: %s %s failed: %v", r.pattern, event.EventID, err)
		}
	}
	if d.dedupe != nil && event.EventID != "" {
		if err := d.dedupe.MarkDone(ctx, event.EventID); err != nil {
			hlog.CtxWarnf(ctx, "dispatcher: mark %s done failed: %v", event.EventID, err)
		}
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, r *route, event *mq.ChangeEvent, params Params) (err error) {
	defer func() {
		if p := recover(); p != nil {
			hlog.CtxErrorf(ctx, "dispatcher: panic in %s for %s: %v\n%s", r.pattern, event.EventID, p, debug.Stack())
			err = nil
		}
	}()
	return r.handler(ctx, event, params)
}
