// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Scene
		wantErr bool
	}{
		{name: "live", input: "live", want: Live},
		{name: "fallback", input: "fallback", want: Fallback},
		{name: "uppercase live", input: "LIVE", want: Live},
		{name: "mixed case fallback", input: "FallBack", want: Fallback},
		{name: "unknown", input: "intermission", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownScene)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScene_Other(t *testing.T) {
	assert.Equal(t, Fallback, Live.Other())
	assert.Equal(t, Live, Fallback.Other())
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"live", "fallback"}, Names())
}
