package store

import (
	"strconv"
	"strings"
)

// Dialect abstracts the few driver differences the queries care about.
type Dialect interface {
	Name() string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func Rebind(query string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
