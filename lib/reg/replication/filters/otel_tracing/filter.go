package otel_tracing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caddyserver/caddy/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"gfx.cafe/util/go/gotel"

	"gfx.cafe/gfx/regat/lib/reg/replication"
)

func init() {
	caddy.RegisterModule((*Filter)(nil))
}

type Config struct {
	ServiceName      string         `json:"service_name,omitempty"`
	ServiceNamespace string         `json:"service_namespace,omitempty"`
	Endpoint         string         `json:"endpoint,omitempty"`
	BatchTimeout     *time.Duration `json:"batch_timeout,omitempty"`
	SamplerRate      string         `json:"sample_rate,omitempty"`
}

// Filter opens a client span around every replication request. It owns the
// process tracer provider, so its endpoint and sampler settings apply
// globally.
type Filter struct {
	Config

	tracer     trace.Tracer
	shutdownFn gotel.ShutdownFunc
}

func (T *Filter) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.replication.filters.otel",
		New: func() caddy.Module {
			return new(Filter)
		},
	}
}

func (T *Filter) Provision(ctx caddy.Context) error {
	if T.ServiceName == "" {
		T.ServiceName = "regat"
	}
	if T.ServiceNamespace == "" {
		T.ServiceNamespace = "gfx.cafe/gfx"
	}

	T.tracer = otel.Tracer("regat", trace.WithInstrumentationAttributes(
		attribute.String("component", "gfx.cafe/gfx/regat/lib/reg/replication/filters/otel_tracing"),
	))

	providerOptions := []gotel.Option{
		gotel.WithServiceName(T.ServiceName),
		gotel.WithServiceNamespace(T.ServiceNamespace),
	}

	if T.BatchTimeout != nil {
		providerOptions = append(providerOptions, gotel.WithBatchTimeout(*T.BatchTimeout))
	}

	if T.Endpoint != "" {
		providerOptions = append(providerOptions, gotel.WithEndpoint(T.Endpoint))
	}

	if T.SamplerRate != "" {
		sampler, err := mapSamplerType(T.SamplerRate)
		if err != nil {
			return err
		}
		providerOptions = append(providerOptions, gotel.WithSampler(sampler))
	}

	var err error
	T.shutdownFn, err = gotel.InitTracing(ctx.Context, providerOptions...)
	return err
}

func (T *Filter) FilterName() string {
	return "otel"
}

func (T *Filter) Apply(next http.RoundTripper) http.RoundTripper {
	return replication.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		ctx, span := T.tracer.Start(req.Context(), "replicate",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("peer.host", req.URL.Host),
				attribute.String("url.path", req.URL.Path),
			))
		defer span.End()

		res, err := next.RoundTrip(req.WithContext(ctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
		if res.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, res.Status)
		}
		return res, nil
	})
}

func (T *Filter) Cleanup() (err error) {
	if T.shutdownFn != nil {
		err = T.shutdownFn(context.Background())
	}
	return
}

func mapSamplerType(samplerType string) (sampler sdktrace.Sampler, err error) {
	switch strings.ToLower(samplerType) {
	case "never", "none", "off":
		sampler = sdktrace.NeverSample()
	case "always", "all", "on":
		sampler = sdktrace.AlwaysSample()
	default:
		var val float64
		if val, err = strconv.ParseFloat(samplerType, 64); err == nil {
			// values above 1 are read as percentages
			if val > 1 {
				val = val / float64(100)
			}
			if val >= 0.0 && val <= 1.0 {
				sampler = sdktrace.TraceIDRatioBased(val)
			} else {
				err = fmt.Errorf("sampler ratio must be >= 0.0 and <= 1.0: '%s'", samplerType)
			}
		} else {
			err = fmt.Errorf("unknown sampler type/ratio value: '%s': %v", samplerType, err)
		}
	}

	return
}

var _ replication.Filter = (*Filter)(nil)
var _ caddy.Module = (*Filter)(nil)
var _ caddy.Provisioner = (*Filter)(nil)
var _ caddy.CleanerUpper = (*Filter)(nil)
