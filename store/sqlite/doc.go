// Package sqlite implements store.Store on SQLite through
// mattn/go-sqlite3. Suitable for single-node deployments, CLI tools and
// local development; it is the default payrolld backend.
//
// Open owns the *sql.DB it creates and closes it on Close. New wraps a
// handle the caller owns; Close then leaves it open.
//
//	s, err := sqlite.Open("payroll.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Times are stored as Unix nanoseconds so ordering and expiry comparisons
// stay in SQL.
package sqlite
