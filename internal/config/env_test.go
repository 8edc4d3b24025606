// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		envSet       bool
		want         string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_STRING",
			defaultValue: "default",
			envValue:     "from-env",
			envSet:       true,
			want:         "from-env",
		},
		{
			name:         "environment variable not set",
			key:          "TEST_STRING_UNSET",
			defaultValue: "default",
			envSet:       false,
			want:         "default",
		},
		{
			name:         "environment variable empty string",
			key:          "TEST_STRING_EMPTY",
			defaultValue: "default",
			envValue:     "",
			envSet:       true,
			want:         "default",
		},
		{
			name:         "sensitive variable",
			key:          "TEST_PASSWORD",
			defaultValue: "default",
			envValue:     "secret123",
			envSet:       true,
			want:         "secret123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			got := ParseString(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		envSet       bool
		want         int
	}{
		{
			name:         "valid integer",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "42",
			envSet:       true,
			want:         42,
		},
		{
			name:         "negative integer",
			key:          "TEST_INT_NEG",
			defaultValue: 10,
			envValue:     "-5",
			envSet:       true,
			want:         -5,
		},
		{
			name:         "invalid integer",
			key:          "TEST_INT_BAD",
			defaultValue: 10,
			envValue:     "not-a-number",
			envSet:       true,
			want:         10,
		},
		{
			name:         "not set",
			key:          "TEST_INT_UNSET",
			defaultValue: 10,
			envSet:       false,
			want:         10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			got := ParseInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue bool
		want         bool
	}{
		{name: "true", envValue: "true", envSet: true, want: true},
		{name: "TRUE", envValue: "TRUE", envSet: true, want: true},
		{name: "one", envValue: "1", envSet: true, want: true},
		{name: "yes", envValue: "yes", envSet: true, want: true},
		{name: "false", envValue: "false", envSet: true, defaultValue: true, want: false},
		{name: "zero", envValue: "0", envSet: true, defaultValue: true, want: false},
		{name: "no", envValue: "no", envSet: true, defaultValue: true, want: false},
		{name: "garbage keeps default", envValue: "maybe", envSet: true, defaultValue: true, want: true},
		{name: "unset keeps default", envSet: false, defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_BOOL", tt.envValue)
			}
			got := ParseBool("TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue time.Duration
		want         time.Duration
	}{
		{name: "valid", envValue: "5s", envSet: true, defaultValue: time.Second, want: 5 * time.Second},
		{name: "invalid", envValue: "soon", envSet: true, defaultValue: time.Second, want: time.Second},
		{name: "unset", envSet: false, defaultValue: time.Second, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_DURATION", tt.envValue)
			}
			got := ParseDuration("TEST_DURATION", tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMillis(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue time.Duration
		want         time.Duration
	}{
		{name: "valid", envValue: "1500", envSet: true, defaultValue: time.Second, want: 1500 * time.Millisecond},
		{name: "zero keeps default", envValue: "0", envSet: true, defaultValue: time.Second, want: time.Second},
		{name: "negative keeps default", envValue: "-200", envSet: true, defaultValue: time.Second, want: time.Second},
		{name: "garbage keeps default", envValue: "fast", envSet: true, defaultValue: time.Second, want: time.Second},
		{name: "unset keeps default", envSet: false, defaultValue: 500 * time.Millisecond, want: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_MILLIS", tt.envValue)
			}
			got := ParseMillis("TEST_MILLIS", tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseMillis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue float64
		want         float64
	}{
		{name: "valid", envValue: "0.25", envSet: true, defaultValue: 1.0, want: 0.25},
		{name: "invalid", envValue: "most", envSet: true, defaultValue: 1.0, want: 1.0},
		{name: "unset", envSet: false, defaultValue: 0.5, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_FLOAT", tt.envValue)
			}
			got := ParseFloat("TEST_FLOAT", tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
