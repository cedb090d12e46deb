package repository

import "strconv"

// rebind converts ? placeholders to $N for postgres. SQLite statements
// are written with ? and pass through unchanged.
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}

	buf := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			buf = append(buf, '$')
			buf = strconv.AppendInt(buf, int64(n), 10)
			continue
		}
		buf = append(buf, query[i])
	}
	return string(buf)
}
