package factory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpoint struct {
	URL     string
	Timeout time.Duration
	Tags    []string
}

type endpointConf struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Port    int           `json:"port"`
	Tags    []string      `json:"tags"`
}

func newEndpoint(conf map[string]any) (*endpoint, error) {
	var c endpointConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" {
		return nil, errors.New("url required")
	}
	return &endpoint{URL: c.URL, Timeout: c.Timeout, Tags: c.Tags}, nil
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry[*endpoint]()
	require.NoError(t, reg.Register("Influx", newEndpoint))

	ep, err := reg.Create(ModuleConfig{Type: " INFLUX ", Conf: map[string]any{
		"url":     "http://localhost:8086",
		"timeout": "15s",
		"tags":    "site,area",
	}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086", ep.URL)
	assert.Equal(t, 15*time.Second, ep.Timeout)
	assert.Equal(t, []string{"site", "area"}, ep.Tags)
	assert.Equal(t, []string{"influx"}, reg.Names())
	assert.True(t, reg.Has("influx"))
	assert.False(t, reg.Has("prometheus"))
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[*endpoint]()
	require.NoError(t, reg.Register("influx", newEndpoint))
	assert.Error(t, reg.Register("INFLUX", newEndpoint), "duplicate")
	assert.Error(t, reg.Register("nil", nil))
	assert.Error(t, reg.Register(" ", newEndpoint))

	_, err := reg.Create(ModuleConfig{Type: "kafka"})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.ErrorContains(t, err, `"kafka"`)

	_, err = reg.Create(ModuleConfig{Type: "influx"})
	assert.EqualError(t, err, "influx: url required")
}

func TestDecode(t *testing.T) {
	var c endpointConf
	require.NoError(t, Decode(map[string]any{"port": "9102"}, &c))
	assert.Equal(t, 9102, c.Port)
	assert.Error(t, Decode(map[string]any{"port": "abc"}, &c))
	assert.Error(t, Decode(map[string]any{"url": "x", "tokn": "typo"}, &c), "unused key")
}
