package mysql

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"opsguard/common/entity"
)

// dryRunDB 只生成 SQL，不连接数据库
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "opsguard:opsguard@tcp(127.0.0.1:3306)/opsguard?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestVectorIndexCandidatesAreBounded(t *testing.T) {
	tests := []struct {
		name      string
		opts      []VectorIndexOption
		service   string
		wantLimit int
	}{
		{name: "default limit", wantLimit: DefaultScanLimit},
		{name: "custom limit with service", opts: []VectorIndexOption{WithScanLimit(200)}, service: "payments", wantLimit: 200},
		{name: "non-positive keeps default", opts: []VectorIndexOption{WithScanLimit(0)}, wantLimit: DefaultScanLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := NewVectorIndex(dryRunDB(t), tt.opts...)

			var items []entity.MemoryItem
			stmt := idx.candidates(context.Background(), tt.service).Find(&items).Statement
			sql := stmt.SQL.String()

			assert.Contains(t, sql, "ORDER BY updated_at DESC")
			assert.True(t, strings.HasSuffix(sql, fmt.Sprintf("LIMIT %d", tt.wantLimit)), sql)
			if tt.service != "" {
				assert.Contains(t, sql, "service = ?")
				require.Len(t, stmt.Vars, 1)
				assert.Equal(t, tt.service, stmt.Vars[0])
			} else {
				assert.NotContains(t, sql, "WHERE")
				assert.Empty(t, stmt.Vars)
			}
		})
	}
}
