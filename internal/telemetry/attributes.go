// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys so spans stay queryable across the daemons.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Scene switching attributes
	SceneTargetKey   = "scene.target"
	ScenePreviousKey = "scene.previous"
	SceneTriggerKey  = "scene.trigger"

	// Container lifecycle attributes
	ContainerNameKey = "container.name"
	ContainerOpKey   = "container.op"

	// Stream probe attributes
	ProbeBitrateKey    = "probe.bitrate_kbps"
	ProbePublishingKey = "probe.publishing"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SceneAttributes creates scene switch span attributes.
func SceneAttributes(target, previous, trigger string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	attrs = append(attrs, attribute.String(SceneTargetKey, target))
	if previous != "" {
		attrs = append(attrs, attribute.String(ScenePreviousKey, previous))
	}
	if trigger != "" {
		attrs = append(attrs, attribute.String(SceneTriggerKey, trigger))
	}
	return attrs
}

// ContainerOpAttributes creates container lifecycle span attributes.
func ContainerOpAttributes(container, op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ContainerNameKey, container),
		attribute.String(ContainerOpKey, op),
	}
}

// ProbeAttributes creates stream probe span attributes.
func ProbeAttributes(bitrateKbps int64, publishing bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ProbeBitrateKey, bitrateKbps),
		attribute.Bool(ProbePublishingKey, publishing),
	}
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
