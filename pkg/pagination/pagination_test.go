package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/styles", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Explicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/styles?page=3&limit=50", nil)
	p := FromRequest(r)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 100, p.Offset)
}

func TestFromRequest_ClampsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"zero page", "page=0", 1, DefaultLimit},
		{"negative page", "page=-5", 1, DefaultLimit},
		{"limit above max", "limit=500", 1, DefaultLimit},
		{"zero limit", "limit=0", 1, DefaultLimit},
		{"garbage", "page=abc&limit=xyz", 1, DefaultLimit},
		{"limit at max", "limit=200", 1, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/styles?"+tt.query, nil)
			p := FromRequest(r)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
		})
	}
}
