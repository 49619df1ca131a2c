package tracing

import (
	"fmt"

	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
)

// HoneycombSetup uses the honeycomb distro to set up the OpenTelemetry SDK.
// Exporter endpoint and API key come from the standard HONEYCOMB_* /
// OTEL_* env vars. Returns a shutdown function to be called on exit.
func HoneycombSetup(enabled bool, serviceName string) (func(), error) {
	if !enabled {
		log.Debugln("tracing disabled, otel sdk not configured")
		return func() {}, nil
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, fmt.Errorf("configure opentelemetry: %w", err)
	}

	log.Debugf("otel sdk configured, service name: %s", serviceName)
	return otelShutdown, nil
}
