// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDimsValidate(t *testing.T) {
	tests := []struct {
		name string
		dims Dims
		ok   bool
	}{
		{"unit", Dims{1, 1, 1}, true},
		{"rectangular", Dims{1024, 3, 77}, true},
		{"zero M", Dims{0, 4, 4}, false},
		{"negative N", Dims{4, -1, 4}, false},
		{"zero K", Dims{4, 4, 0}, false},
		{"overflow MK", Dims{math.MaxInt / 2, 1, 3}, false},
		{"overflow MN", Dims{math.MaxInt / 2, 3, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dims.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, IsInvalidArgError(err), "unexpected error %v", err)
		})
	}
}

func TestFlopModel(t *testing.T) {
	dims := Dims{M: 2, N: 3, K: 4}
	require.Equal(t, 48.0, FlopStandard.Count(dims))
	require.Equal(t, 78.0, FlopAccumulate.Count(dims))
	require.Equal(t, "2 * M * N * K", FlopStandard.Formula())
	require.Equal(t, "M * N * (1+3*K)", FlopAccumulate.Formula())

	for _, s := range []string{"standard", "accumulate"} {
		m, err := ParseFlopModel(s)
		require.NoError(t, err)
		require.Equal(t, s, m.String())
	}
	m, err := ParseFlopModel("")
	require.NoError(t, err)
	require.Equal(t, FlopStandard, m)

	_, err = ParseFlopModel("fused")
	require.True(t, IsInvalidArgError(err))
}

func TestFlopModelJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Model FlopModel `json:"model"`
	}{FlopAccumulate})
	require.NoError(t, err)
	require.JSONEq(t, `{"model":"accumulate"}`, string(data))

	var got struct {
		Model FlopModel `json:"model"`
	}
	require.Error(t, json.Unmarshal([]byte(`{"model":"bogus"}`), &got))
}

func TestPresets(t *testing.T) {
	dims := Dims{M: 16, N: 16, K: 16}

	threads := PresetThreads.Config(6, dims)
	require.Equal(t, 6, threads.Threads)
	require.True(t, threads.RandomScales)
	require.False(t, threads.Verbose)
	require.Equal(t, FlopStandard, threads.FlopModel)
	require.True(t, PresetThreads.ThreadsFromArgs())

	serial := PresetSerial.Config(6, dims)
	require.Equal(t, 1, serial.Threads)
	require.False(t, serial.RandomScales)
	require.True(t, serial.Verbose)
	require.False(t, PresetSerial.ThreadsFromArgs())

	p8 := PresetParallel8.Config(0, dims)
	require.Equal(t, 8, p8.Threads)
	require.True(t, p8.RandomScales)
	require.True(t, p8.Verbose)
	require.Equal(t, FlopAccumulate, p8.FlopModel)

	for name, p := range Presets {
		require.Equal(t, name, p.Name)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, PresetSerial.Config(0, Dims{1, 1, 1}).Validate())
	require.True(t, IsInvalidArgError(PresetThreads.Config(0, Dims{1, 1, 1}).Validate()))
	require.True(t, IsInvalidArgError(PresetThreads.Config(-3, Dims{1, 1, 1}).Validate()))
	require.True(t, IsInvalidArgError(PresetThreads.Config(2, Dims{1, 1, -1}).Validate()))
}
