package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id FROM notifications WHERE id = $1", "select", "notifications"},
		{"\n\t\tUPDATE scheduled_notifications\n\t\tSET sent = TRUE", "update", "scheduled_notifications"},
		{"INSERT INTO plans (name) VALUES ($1)", "insert", "plans"},
		{"DELETE FROM users WHERE id = $1", "delete", "users"},
		{"BEGIN", "begin", "unknown"},
		{"", "unknown", "unknown"},
	}

	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.operation, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}
