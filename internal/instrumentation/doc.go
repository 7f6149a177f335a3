// Package instrumentation provides OpenTelemetry-based metrics and tracing
// for the feierabend service.
//
// The Provider owns a meter provider and a tracer provider. Metrics are
// exported via Prometheus by default (scraped from the dedicated metrics
// server), with OTLP and stdout exporters selectable through environment
// variables. Tracing is off by default.
//
// The Metrics recorder exposes typed recording methods for the domains the
// service cares about: inbound HTTP requests, handled push notifications,
// Google Calendar API operations, propagation writes and split outcomes.
// All recording methods are safe on a zero-value Metrics, which makes a
// disabled provider a true no-op.
package instrumentation
