package postgres

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_PoolLimits(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantOpen int
		wantIdle int
	}{
		{"defaults", Config{}, 10, 2},
		{"configured", Config{MaxConns: 20, MinConns: 5}, 20, 5},
		{"idle capped by open", Config{MaxConns: 1, MinConns: 4}, 1, 1},
		{"negative uses defaults", Config{MaxConns: -1, MinConns: -1}, 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, idle := tt.cfg.poolLimits()
			assert.Equal(t, tt.wantOpen, open)
			assert.Equal(t, tt.wantIdle, idle)
		})
	}
}

func TestPoolUsage(t *testing.T) {
	usage, ok := poolUsage(sql.DBStats{MaxOpenConnections: 10, OpenConnections: 4})
	assert.True(t, ok)
	assert.InDelta(t, 40.0, usage, 0.001)

	_, ok = poolUsage(sql.DBStats{OpenConnections: 4})
	assert.False(t, ok)
}
