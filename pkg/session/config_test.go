package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTargetURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host gets https", in: "example.com", want: "https://example.com"},
		{name: "whitespace trimmed", in: "  example.com  ", want: "https://example.com"},
		{name: "http preserved", in: "http://example.com", want: "http://example.com"},
		{name: "https preserved", in: "https://example.com/path?q=1", want: "https://example.com/path?q=1"},
		{name: "host with port", in: "example.com:8080", want: "https://example.com:8080"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "ftp rejected", in: "ftp://example.com", wantErr: true},
		{name: "file rejected", in: "file:///etc/passwd", wantErr: true},
		{name: "scheme only", in: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTargetURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigValidate_DefaultsInterval(t *testing.T) {
	c, err := Config{TargetURL: "example.com"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, DefaultKeepAliveInterval, c.KeepAliveInterval)
}

func TestConfigValidate_IntervalBounds(t *testing.T) {
	base := Config{TargetURL: "example.com"}

	cases := []struct {
		interval time.Duration
		ok       bool
	}{
		{time.Minute, true},
		{10 * time.Minute, true},
		{time.Hour, true},
		{59 * time.Second, false},
		{time.Hour + time.Minute, false},
		{-time.Minute, false},
	}

	for _, tc := range cases {
		base.KeepAliveInterval = tc.interval
		_, err := base.Validate()
		if tc.ok {
			assert.NoError(t, err, "interval %s", tc.interval)
		} else {
			assert.Error(t, err, "interval %s", tc.interval)
		}
	}
}

func TestConfigValidate_NormalizesURLInPlace(t *testing.T) {
	c, err := Config{TargetURL: "example.com", KeepAliveInterval: time.Minute}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", c.TargetURL)
}

func TestConfigValidate_DoesNotMutateReceiver(t *testing.T) {
	original := Config{TargetURL: "example.com"}
	_, err := original.Validate()
	require.NoError(t, err)
	assert.Equal(t, "example.com", original.TargetURL)
	assert.Zero(t, original.KeepAliveInterval)
}
