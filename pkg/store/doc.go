// Package store persists the crawled region tree.
//
// Three tables are written: region, station and sublocality. Stations and
// sub-localities reference region.id and are removed with their region.
// The store speaks to SQLite (the default, through modernc.org/sqlite with
// foreign keys enabled per connection), PostgreSQL (lib/pq) and MySQL
// (go-sql-driver/mysql). Queries are written with ? placeholders and
// rebound for PostgreSQL.
//
// Driver errors are classified: key collisions become duplicate_entity
// errors and foreign key violations become integrity errors.
//
//	err := store.WithStore(ctx, store.Options{Driver: "sqlite", DSN: "geo.db"}, func(s *store.Store) error {
//	    if err := s.EnsureSchema(ctx); err != nil {
//	        return err
//	    }
//	    return s.ResetTables(ctx)
//	})
package store
