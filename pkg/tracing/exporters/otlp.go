// Package exporters builds the span exporters moss serve and the CLI ship
// their run traces with.
package exporters

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Ramsey-B/moss/pkg/errors"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// OTLPConfig holds configuration for the OTLP exporter
type OTLPConfig struct {
	// Endpoint is host:port or a URL. A URL scheme overrides Insecure.
	Endpoint string

	// Protocol is "grpc" or "http" and defaults to grpc.
	Protocol string

	Insecure bool

	Timeout time.Duration
}

// normalize splits a URL endpoint into host:port and the TLS setting its
// scheme implies.
func (c OTLPConfig) normalize() (OTLPConfig, error) {
	if c.Protocol == "" {
		c.Protocol = ProtocolGRPC
	}
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		return c, errors.InvalidInput("unsupported OTLP protocol %q, use grpc or http", c.Protocol)
	}
	if !strings.Contains(c.Endpoint, "://") {
		return c, nil
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" {
		return c, errors.InvalidInput("invalid OTLP endpoint %q", c.Endpoint)
	}
	switch u.Scheme {
	case "http":
		c.Insecure = true
	case "https":
		c.Insecure = false
	default:
		return c, errors.InvalidInput("invalid OTLP endpoint scheme %q", u.Scheme)
	}
	c.Endpoint = u.Host
	return c, nil
}

// NewOTLPExporter creates a new OTLP trace exporter
func NewOTLPExporter(ctx context.Context, config OTLPConfig) (*otlptrace.Exporter, error) {
	config, err := config.normalize()
	if err != nil {
		return nil, err
	}

	switch config.Protocol {
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(config.Endpoint),
			otlptracegrpc.WithTimeout(config.Timeout),
		}
		if config.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(config.Endpoint),
			otlptracehttp.WithTimeout(config.Timeout),
		}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
}

// Service describes the process every span of a run is attributed to.
type Service struct {
	Name         string
	Version      string
	TargetSchema string
	TargetModel  string
}

// Resource returns the resource attributes spans are exported with.
func Resource(s Service) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", s.Name)}
	if s.Version != "" {
		attrs = append(attrs, attribute.String("service.version", s.Version))
	}
	if s.TargetSchema != "" {
		attrs = append(attrs, attribute.String("moss.target_schema", s.TargetSchema))
	}
	if s.TargetModel != "" {
		attrs = append(attrs, attribute.String("moss.target_model", s.TargetModel))
	}
	return resource.NewSchemaless(attrs...)
}
