// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldSubscriberID = "subscriber_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"

	// Scene fields
	FieldScene     = "scene"
	FieldPrevScene = "previous_scene"
	FieldMode      = "mode"

	// Probe / stream fields
	FieldStream      = "stream"
	FieldApplication = "application"
	FieldBitrateKbps = "bitrate_kbps"
	FieldClients     = "clients"

	// Service / runtime fields
	FieldService   = "service_name"
	FieldContainer = "container"
	FieldOp        = "op"
	FieldLifecycle = "lifecycle"
	FieldHealth    = "health"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
