// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sqlstore

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/poiesic/floatchat/core"
)

// FloatStats returns per-float aggregates for one page of floats.
func (r *ProfileRepository) FloatStats(ctx context.Context, afterFloatID string, limit int) ([]*core.FloatStats, error) {
	if limit <= 0 {
		return []*core.FloatStats{}, nil
	}
	b := r.backend
	query := `
		SELECT p.float_wmo_id, COUNT(*), MIN(p.timestamp), MAX(p.timestamp),
			MIN(p.latitude), MAX(p.latitude), MIN(p.longitude), MAX(p.longitude)
		FROM float_profiles p
		WHERE p.float_wmo_id <> '' AND p.float_wmo_id > ` + b.placeholder(1) + `
		GROUP BY p.float_wmo_id
		ORDER BY p.float_wmo_id
		LIMIT ` + b.placeholder(2)

	rows, err := b.conn(ctx).QueryContext(ctx, query, afterFloatID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate floats")
	}
	defer rows.Close()

	stats := []*core.FloatStats{}
	byFloat := map[string]*core.FloatStats{}
	for rows.Next() {
		var (
			s           core.FloatStats
			first, last timeColumn
		)
		if err := rows.Scan(&s.FloatID, &s.Profiles, &first, &last, &s.MinLat, &s.MaxLat, &s.MinLon, &s.MaxLon); err != nil {
			return nil, errors.Wrap(err, "failed to scan float aggregate")
		}
		s.First, s.Last = first.Time, last.Time
		s.Variables = []string{}
		stats = append(stats, &s)
		byFloat[s.FloatID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read float aggregates")
	}
	rows.Close()

	if len(stats) == 0 {
		return stats, nil
	}
	if err := r.attachVariables(ctx, byFloat); err != nil {
		return nil, err
	}
	return stats, nil
}

// attachVariables fills Variables with the distinct non-null measurement
// keys seen in each float's profiles and measurement rows.
func (r *ProfileRepository) attachVariables(ctx context.Context, byFloat map[string]*core.FloatStats) error {
	b := r.backend
	floats := make([]string, 0, len(byFloat))
	for id := range byFloat {
		floats = append(floats, id)
	}
	slices.Sort(floats)

	var query string
	var args []any
	if b.dialect == DialectPostgres {
		var cond string
		cond, args = b.inStrings("p.float_wmo_id", floats, nil)
		query = `
			SELECT DISTINCT p.float_wmo_id, e.key
			FROM float_profiles p, jsonb_each(p.measurements) e
			WHERE ` + cond + ` AND jsonb_typeof(e.value) <> 'null'
			UNION
			SELECT DISTINCT p.float_wmo_id, e.key
			FROM measurements m
			JOIN float_profiles p ON p.id = m.profile_id, jsonb_each(m.data) e
			WHERE ` + cond + ` AND jsonb_typeof(e.value) <> 'null'`
	} else {
		var cond1, cond2 string
		cond1, args = b.inStrings("p.float_wmo_id", floats, nil)
		cond2, args = b.inStrings("p.float_wmo_id", floats, args)
		query = `
			SELECT DISTINCT p.float_wmo_id, j.key
			FROM float_profiles p, json_each(p.measurements) j
			WHERE ` + cond1 + ` AND j.type <> 'null'
			UNION
			SELECT DISTINCT p.float_wmo_id, j.key
			FROM measurements m
			JOIN float_profiles p ON p.id = m.profile_id, json_each(m.data) j
			WHERE ` + cond2 + ` AND j.type <> 'null'`
	}

	rows, err := b.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to list float variables")
	}
	defer rows.Close()

	for rows.Next() {
		var floatID, key string
		if err := rows.Scan(&floatID, &key); err != nil {
			return errors.Wrap(err, "failed to scan float variable")
		}
		if core.IsReservedKey(key) {
			continue
		}
		if s, ok := byFloat[floatID]; ok && !slices.Contains(s.Variables, key) {
			s.Variables = append(s.Variables, key)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to read float variables")
	}
	for _, s := range byFloat {
		slices.Sort(s.Variables)
	}
	return nil
}
