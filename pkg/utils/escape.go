package utils

import (
	"strings"
)

// EscapeString escapes s for use inside a Redshift single-quoted string constant.
// See https://docs.aws.amazon.com/redshift/latest/dg/r_Literals.html
func EscapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		r := s[i]
		switch r {
		case '\'':
			sb.Write([]byte{'\'', '\''})
		case '\\':
			sb.Write([]byte{'\\', '\\'})
		case '\n':
			sb.Write([]byte{'\\', 'n'})
		case '\r':
			sb.Write([]byte{'\\', 'r'})
		case '\t':
			sb.Write([]byte{'\\', 't'})
		case 0:
			// NUL can not appear in a Redshift literal
		default:
			sb.WriteByte(r)
		}
	}
	return sb.String()
}

// QuoteLiteral returns s as a complete single-quoted literal, e.g. 's3://bucket/key'.
func QuoteLiteral(s string) string {
	return "'" + EscapeString(s) + "'"
}
