package driver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pgParam(i int) string { return fmt.Sprintf("$%d", i+1) }
func myParam(i int) string { return "?" }

func TestBindParams(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		param func(int) string
		want  string
	}{
		{
			name:  "numbered placeholders",
			sql:   "SELECT * FROM orders WHERE status = ? AND total > ?",
			param: pgParam,
			want:  "SELECT * FROM orders WHERE status = $1 AND total > $2",
		},
		{
			name:  "question mark dialect is unchanged",
			sql:   "SELECT * FROM orders WHERE status = ? AND total > ?",
			param: myParam,
			want:  "SELECT * FROM orders WHERE status = ? AND total > ?",
		},
		{
			name:  "no placeholders",
			sql:   "SELECT 1",
			param: pgParam,
			want:  "SELECT 1",
		},
		{
			name:  "question mark inside string literal",
			sql:   "SELECT * FROM t WHERE note = 'why?' AND id = ?",
			param: pgParam,
			want:  "SELECT * FROM t WHERE note = 'why?' AND id = $1",
		},
		{
			name:  "question mark inside quoted identifier",
			sql:   `SELECT "odd?col" FROM t WHERE id = ?`,
			param: pgParam,
			want:  `SELECT "odd?col" FROM t WHERE id = $1`,
		},
		{
			name:  "question mark inside backtick identifier",
			sql:   "SELECT `odd?col` FROM t WHERE id = ?",
			param: pgParam,
			want:  "SELECT `odd?col` FROM t WHERE id = $1",
		},
		{
			name:  "escaped quote inside literal",
			sql:   "SELECT * FROM t WHERE note = 'it''s?' AND id = ?",
			param: pgParam,
			want:  "SELECT * FROM t WHERE note = 'it''s?' AND id = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BindParams(tt.sql, tt.param))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, QuoteIdent("orders"))
	assert.Equal(t, `"odd""name"`, QuoteIdent(`odd"name`))
}
