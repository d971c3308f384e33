package jaeger

import (
	"io"

	"FoodTok.com/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitJaeger 安装全局tracer, gorm的opentracing插件从这里取span.
// 未配置agent地址时使用空tracer
func InitJaeger(service string) (opentracing.Tracer, io.Closer) {
	addr := config.ConfigInfo.Jaeger.AgentAddr
	if addr == "" {
		hlog.Warnf("jaeger agent not configured, tracing disabled for %s", service)
		return opentracing.NoopTracer{}, nopCloser{}
	}
	cfg := &jaegercfg.Configuration{
		ServiceName: service,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           true,
			LocalAgentHostPort: addr,
		},
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		hlog.Errorf("init jaeger tracer failed: %v", err)
		return opentracing.NoopTracer{}, nopCloser{}
	}
	opentracing.SetGlobalTracer(tracer)
	return tracer, closer
}
