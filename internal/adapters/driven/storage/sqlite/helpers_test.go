package sqlite

import "database/sql"

func openForTest(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}
