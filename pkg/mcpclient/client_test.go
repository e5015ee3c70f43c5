package mcpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialRejectsNonHTTPEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), "ws://localhost:1/mcp")
	assert.ErrorContains(t, err, "unsupported endpoint")
}

func TestOptions(t *testing.T) {
	cfg := newConfig([]Option{WithVersion("1.2.3")})
	assert.Equal(t, "1.2.3", cfg.version)
	assert.Nil(t, cfg.httpClient)
	assert.Equal(t, "dev", newConfig(nil).version)
}
