package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty values", NewContext("", ""), UnknownValue, UnknownValue},
		{"populated", NewContext("1.2.0", "2026-10-01"), "1.2.0", "2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
			assert.Equal(t, "ctdstations@"+tt.version, tt.ctx.Release())
		})
	}
}

func TestContextImplementsBuildInfo(t *testing.T) {
	var _ BuildInfo = (*Context)(nil)
}
