package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*UpscoutConfig)
		wantFields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*UpscoutConfig) {},
		},
		{
			name: "rancher url without host",
			mutate: func(c *UpscoutConfig) {
				c.Rancher.URL = "https://"
			},
			wantFields: []string{"rancher.url"},
		},
		{
			name: "invalid namespace",
			mutate: func(c *UpscoutConfig) {
				c.Discovery.AllowedNamespaces = []string{"Not_Valid"}
			},
			wantFields: []string{"discovery.allowedNamespaces"},
		},
		{
			name: "zero concurrency",
			mutate: func(c *UpscoutConfig) {
				c.Discovery.MaxConcurrent = 0
			},
			wantFields: []string{"discovery.maxConcurrent"},
		},
		{
			name: "health path without slash",
			mutate: func(c *UpscoutConfig) {
				c.Health.Path = "health"
			},
			wantFields: []string{"health.path"},
		},
		{
			name: "monitor interval too short",
			mutate: func(c *UpscoutConfig) {
				c.Monitor.Interval = 10 * time.Millisecond
			},
			wantFields: []string{"monitor.interval"},
		},
		{
			name: "monitor endpoint invalid",
			mutate: func(c *UpscoutConfig) {
				c.Monitor.Endpoints = map[string]string{"proxy": "10.0.0.1:8911"}
			},
			wantFields: []string{"monitor.endpoints.proxy"},
		},
		{
			name: "template format without template",
			mutate: func(c *UpscoutConfig) {
				c.Output.Format = "template"
			},
			wantFields: []string{"output.template"},
		},
		{
			name: "unknown format and log level",
			mutate: func(c *UpscoutConfig) {
				c.Output.Format = "xml"
				c.LogLevel = "chatty"
			},
			wantFields: []string{"output.format", "logLevel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			errs := Validate(cfg)

			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is bad")
	assert.Equal(t, "field 'a': is bad", errs.Error())

	errs.Add("b", "is worse")
	assert.Equal(t, "validation failed: field 'a': is bad; field 'b': is worse", errs.Error())
}
