package app

import (
	"io"

	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

const serviceName = "kioskcam"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openTracer installs a Jaeger tracer as the global opentracing tracer when
// agentHostPort is set. Every span is sampled.
func openTracer(agentHostPort string) (io.Closer, error) {
	if agentHostPort == "" {
		return nopCloser{}, nil
	}

	cfg := jaegercfg.Configuration{
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: agentHostPort,
		},
	}

	return cfg.InitGlobalTracer(serviceName)
}
