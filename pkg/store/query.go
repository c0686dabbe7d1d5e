package store

import (
	"context"
	"fmt"
)

// Counts returns the number of rows in each table
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"region", &c.Regions},
		{"station", &c.Stations},
		{"sublocality", &c.Sublocalities},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, s.classify("store.counts", fmt.Errorf("count %s: %w", t.table, err))
		}
	}
	return c, nil
}

// Regions returns every region ordered by id
func (s *Store) Regions(ctx context.Context) ([]Region, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rgid, name, parent_id, has_metro, has_subloc FROM region ORDER BY id`)
	if err != nil {
		return nil, s.classify("store.regions", err)
	}
	defer rows.Close()

	var out []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.RGID, &r.Name, &r.ParentID, &r.HasMetro, &r.HasSubloc); err != nil {
			return nil, s.classify("store.regions", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("store.regions", err)
	}
	return out, nil
}

// Stations returns every station ordered by id
func (s *Store) Stations(ctx context.Context) ([]Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, region_id FROM station ORDER BY id`)
	if err != nil {
		return nil, s.classify("store.stations", err)
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.ID, &st.Name, &st.RegionID); err != nil {
			return nil, s.classify("store.stations", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("store.stations", err)
	}
	return out, nil
}

// Sublocalities returns every sublocality ordered by id
func (s *Store) Sublocalities(ctx context.Context) ([]Sublocality, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, region_id FROM sublocality ORDER BY id`)
	if err != nil {
		return nil, s.classify("store.sublocalities", err)
	}
	defer rows.Close()

	var out []Sublocality
	for rows.Next() {
		var sl Sublocality
		if err := rows.Scan(&sl.ID, &sl.Name, &sl.RegionID); err != nil {
			return nil, s.classify("store.sublocalities", err)
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("store.sublocalities", err)
	}
	return out, nil
}
