package driver

import "strings"

// BindParams rewrites the `?` placeholders of a generic statement into the
// adapter's native syntax via param. Placeholders are counted 0-based in
// the input sequence; adapters that number parameters in the statement text
// (Postgres $n) render them 1-based. `?` inside single-quoted strings,
// double-quoted identifiers, and backtick-quoted identifiers is left alone.
func BindParams(sql string, param func(index int) string) string {
	var sb strings.Builder
	sb.Grow(len(sql))

	idx := 0
	var quote byte // 0 when outside any quoted region
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			sb.WriteByte(ch)
			if ch == quote {
				// Doubled quote chars escape themselves inside a region.
				if i+1 < len(sql) && sql[i+1] == quote {
					sb.WriteByte(quote)
					i++
					continue
				}
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			sb.WriteByte(ch)
		case ch == '?':
			sb.WriteString(param(idx))
			idx++
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// QuoteIdent wraps a SQL identifier in double-quotes (ANSI standard),
// doubling embedded quotes. Adapters with non-ANSI identifier quoting
// (MySQL backticks) supply their own.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
