package utilities

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"Warn", Warn, false},
		{"error", Error, false},
		{"fatal", Fatal, false},
		{"verbose", Info, true},
		{"", Info, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDoJSONRequestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var out struct {
		Value int `json:"value"`
	}
	err = DoJSONRequest(server.Client(), req, 3, time.Millisecond, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, 3, calls)
}

func TestDoJSONRequestClientErrorIsFinal(t *testing.T) {
	t.Parallel()

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var out map[string]any
	err = DoJSONRequest(server.Client(), req, 3, time.Millisecond, &out)
	require.Error(t, err)
	// 4xx responses are not transient; no retries are burned on them.
	assert.Equal(t, 1, calls)
}

func TestSortBarsByTimestamp(t *testing.T) {
	t.Parallel()

	bars := []OHLCVBar{{Timestamp: 30}, {Timestamp: 10}, {Timestamp: 20}}
	SortBarsByTimestamp(bars)
	assert.Equal(t, int64(10), bars[0].Timestamp)
	assert.Equal(t, int64(20), bars[1].Timestamp)
	assert.Equal(t, int64(30), bars[2].Timestamp)
}
