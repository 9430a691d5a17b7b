package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryService(t *testing.T) {
	assert.Nil(t, PrimaryService(nil))

	tests := []struct {
		name     string
		services []DetectedService
		want     string
	}{
		{
			name: "cluster ip preferred",
			services: []DetectedService{
				{Name: "lb", Type: "LoadBalancer", URL: "http://198.51.100.1:8911"},
				{Name: "headless", ClusterIP: "None"},
				{Name: "cip", Type: "ClusterIP", ClusterIP: "10.43.0.1"},
			},
			want: "cip",
		},
		{
			name: "load balancer next",
			services: []DetectedService{
				{Name: "url", URL: "http://10.0.0.1:8911"},
				{Name: "lb", Type: "LoadBalancer"},
			},
			want: "lb",
		},
		{
			name: "any url",
			services: []DetectedService{
				{Name: "bare"},
				{Name: "url", URL: "http://10.0.0.1:8911"},
			},
			want: "url",
		},
		{
			name:     "first as last resort",
			services: []DetectedService{{Name: "a"}, {Name: "b"}},
			want:     "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrimaryService(tt.services)
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Name)
			}
		})
	}
}
