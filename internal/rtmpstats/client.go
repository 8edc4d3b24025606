// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rtmpstats fetches and parses nginx-rtmp statistics documents.
package rtmpstats

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/telemetry"
)

const (
	defaultTimeout = 1500 * time.Millisecond

	// maxStatsSize bounds the stats document; real nginx-rtmp pages are
	// a few KB even with hundreds of clients.
	maxStatsSize = 4 * 1024 * 1024
)

var (
	// ErrUnavailable marks transport failures reaching the stats endpoint.
	ErrUnavailable = errors.New("rtmpstats: stats endpoint unreachable")
	// ErrBadStatus marks a non-2xx response from the stats endpoint.
	ErrBadStatus = errors.New("rtmpstats: unexpected stats response status")
	// ErrBadPayload marks a response body that is not a valid stats document.
	ErrBadPayload = errors.New("rtmpstats: malformed stats document")
)

// StreamSample is a single observation of the configured live stream.
// The zero value means "stream absent".
type StreamSample struct {
	Exists      bool
	Publishing  bool
	VideoBwBps  int64
	ClientCount int
	Publishers  int
}

// BitrateKbps converts the sampled video bandwidth to kbit/s.
func (s StreamSample) BitrateKbps() int64 {
	return s.VideoBwBps * 8 / 1000
}

// Healthy reports whether the sample carries a publishable live signal at
// or above the given bitrate threshold.
func (s StreamSample) Healthy(minKbps int64) bool {
	return s.Exists && s.Publishing && s.BitrateKbps() >= minKbps
}

// Config configures a stats client.
type Config struct {
	// URL is the full stats endpoint, e.g. http://127.0.0.1:8080/stat.
	URL string
	// App is the RTMP application name to look up.
	App string
	// Stream is the stream name within the application.
	Stream string
	// UserAgent overrides the request User-Agent. Optional.
	UserAgent string
	// Timeout bounds the whole fetch. Defaults to 1.5s.
	Timeout time.Duration
}

// Client samples a single stream from an nginx-rtmp stats endpoint.
// It never caches; every Sample call performs a fresh fetch.
type Client struct {
	url       string
	app       string
	stream    string
	userAgent string
	http      *http.Client
}

// New returns a stats client for the configured application/stream pair.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "streamgate"
	}
	return &Client{
		url:       cfg.URL,
		app:       cfg.App,
		stream:    cfg.Stream,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
	}
}

// Sample fetches the stats document and extracts the configured stream.
// An absent application or stream is data, not an error: the returned
// sample has Exists=false and a nil error. Transport failures, non-2xx
// responses and malformed documents return an error; callers treat those
// the same as an absent stream.
func (c *Client) Sample(ctx context.Context) (StreamSample, error) {
	ctx, span := telemetry.Tracer("streamgate.rtmpstats").Start(ctx, "probe.sample",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	sample, err := c.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sample, err
	}
	span.SetAttributes(telemetry.ProbeAttributes(sample.BitrateKbps(), sample.Publishing)...)
	span.SetStatus(codes.Ok, "")
	return sample, nil
}

func (c *Client) fetch(ctx context.Context) (StreamSample, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		metrics.IncProbe(metrics.ProbeOutcomeError)
		return StreamSample{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		metrics.IncProbe(metrics.ProbeOutcomeError)
		metrics.ObserveProbeDuration(time.Since(start))
		return StreamSample{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.IncProbe(metrics.ProbeOutcomeError)
		metrics.ObserveProbeDuration(time.Since(start))
		return StreamSample{}, fmt.Errorf("%w: HTTP %d", ErrBadStatus, res.StatusCode)
	}

	doc, err := decodeStats(io.LimitReader(res.Body, maxStatsSize))
	metrics.ObserveProbeDuration(time.Since(start))
	if err != nil {
		metrics.IncProbe(metrics.ProbeOutcomeError)
		return StreamSample{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	st, ok := findStream(doc, c.app, c.stream)
	if !ok {
		metrics.IncProbe(metrics.ProbeOutcomeMissing)
		metrics.SetProbeBitrate(0)
		return StreamSample{}, nil
	}

	sample := StreamSample{
		Exists:      true,
		Publishing:  truthy(st.Publishing) || st.NClients >= 1,
		VideoBwBps:  st.BwVideo,
		ClientCount: st.NClients,
		Publishers:  countPublishers(st.Clients),
	}
	metrics.IncProbe(metrics.ProbeOutcomeOK)
	metrics.SetProbeBitrate(float64(sample.BitrateKbps()))
	return sample, nil
}

func decodeStats(r io.Reader) (*statsDocument, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	// Disable entity expansion to prevent XXE attacks
	dec.Entity = make(map[string]string)

	var doc statsDocument
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &doc, nil
}

// findStream looks the stream up both directly under the application and
// under its <live> block; nginx-rtmp emits either layout depending on
// version.
func findStream(doc *statsDocument, app, stream string) (statsStream, bool) {
	for _, a := range doc.Server.Applications {
		if a.Name != app {
			continue
		}
		for _, s := range a.Streams {
			if s.Name == stream {
				return s, true
			}
		}
		for _, s := range a.Live.Streams {
			if s.Name == stream {
				return s, true
			}
		}
	}
	return statsStream{}, false
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "1", "true", "on":
		return true
	}
	return false
}

func countPublishers(clients []statsClient) int {
	n := 0
	for _, c := range clients {
		if c.Publishing != nil {
			n++
		}
	}
	return n
}
