// Package client holds the adapters for outbound APIs: the Gemini text
// generation backend and the Yahoo Finance chart API.
package client

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("client")
