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
	"database/sql"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
)

// upsertChunkSize bounds rows per INSERT statement to stay under bind parameter limits.
const upsertChunkSize = 500

const profileColumns = "p.id, p.float_wmo_id, p.timestamp, p.latitude, p.longitude, p.measurements"

// ProfileRepository implements storage.ProfileRepository.
type ProfileRepository struct {
	backend *Backend
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a ProfileRepository on backend.
func NewProfileRepository(backend *Backend) *ProfileRepository {
	return &ProfileRepository{backend: backend}
}

// Close is a no-op; the backend owns the connection.
func (r *ProfileRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ProfileRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertProfiles inserts profiles and skips those whose key already exists.
func (r *ProfileRepository) UpsertProfiles(ctx context.Context, profiles ...*core.Profile) ([]*core.Profile, error) {
	// Keep the first occurrence of each key so returned rows map back unambiguously.
	byKey := make(map[core.ProfileKey]*core.Profile, len(profiles))
	unique := make([]*core.Profile, 0, len(profiles))
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
		p.Timestamp = core.NormalizeTimestamp(p.Timestamp)
		k := p.Key()
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = p
		unique = append(unique, p)
	}

	inserted := make([]*core.Profile, 0, len(unique))
	for chunk := range slices.Chunk(unique, upsertChunkSize) {
		got, err := r.upsertChunk(ctx, chunk, byKey)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, got...)
	}
	return inserted, nil
}

func (r *ProfileRepository) upsertChunk(ctx context.Context, chunk []*core.Profile, byKey map[core.ProfileKey]*core.Profile) ([]*core.Profile, error) {
	b := r.backend
	values := make([]string, 0, len(chunk))
	args := make([]any, 0, len(chunk)*5)
	for _, p := range chunk {
		data, err := json.Marshal(measurementsOrEmpty(p.Measurements))
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode measurements")
		}
		values = append(values, "("+b.placeholders(len(args)+1, 5)+")")
		args = append(args, p.FloatID, b.timeArg(p.Timestamp), p.Latitude, p.Longitude, string(data))
	}

	stmt := `
		INSERT INTO float_profiles (float_wmo_id, timestamp, latitude, longitude, measurements)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (float_wmo_id, timestamp, latitude, longitude) DO NOTHING
		RETURNING id, float_wmo_id, timestamp, latitude, longitude`

	rows, err := b.conn(ctx).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert profiles")
	}
	defer rows.Close()

	inserted := make([]*core.Profile, 0, len(chunk))
	for rows.Next() {
		var (
			id  int64
			key core.ProfileKey
			ts  timeColumn
		)
		if err := rows.Scan(&id, &key.FloatID, &ts, &key.Latitude, &key.Longitude); err != nil {
			return nil, errors.Wrap(err, "failed to scan inserted profile")
		}
		key.Timestamp = ts.Time.UnixMicro()
		p, ok := byKey[key]
		if !ok {
			return nil, errors.Errorf("inserted profile %d does not match any input row", id)
		}
		p.ID = core.ID(id)
		inserted = append(inserted, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read inserted profiles")
	}

	// RETURNING order is not guaranteed; report in input order.
	pos := make(map[*core.Profile]int, len(chunk))
	for i, p := range chunk {
		pos[p] = i
	}
	slices.SortFunc(inserted, func(x, y *core.Profile) int {
		return pos[x] - pos[y]
	})
	return inserted, nil
}

// InsertMeasurements adds measurement rows.
func (r *ProfileRepository) InsertMeasurements(ctx context.Context, measurements ...*core.Measurement) error {
	b := r.backend
	stmt := `INSERT INTO measurements (profile_id, depth, data) VALUES (` + b.placeholders(1, 3) + `) RETURNING id`
	for _, m := range measurements {
		data, err := json.Marshal(measurementsOrEmpty(m.Data))
		if err != nil {
			return errors.Wrap(err, "failed to encode measurement data")
		}
		var id int64
		if err := b.conn(ctx).QueryRowContext(ctx, stmt, int64(m.ProfileID), m.Depth, string(data)).Scan(&id); err != nil {
			return errors.Wrapf(err, "failed to insert measurement for profile %d", m.ProfileID)
		}
		m.ID = core.ID(id)
	}
	return nil
}

// GetProfile retrieves a single profile by ID.
func (r *ProfileRepository) GetProfile(ctx context.Context, id core.ID) (*core.Profile, error) {
	b := r.backend
	query := `SELECT ` + profileColumns + ` FROM float_profiles p WHERE p.id = ` + b.placeholder(1)
	p, err := scanProfile(b.conn(ctx).QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get profile %d", id)
	}
	return p, nil
}

// GetProfiles retrieves the existing profiles among ids, in the order of ids.
func (r *ProfileRepository) GetProfiles(ctx context.Context, ids ...core.ID) ([]*core.Profile, error) {
	if len(ids) == 0 {
		return []*core.Profile{}, nil
	}
	b := r.backend
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	cond, args := b.inIDs("p.id", raw, nil)
	query := `SELECT ` + profileColumns + ` FROM float_profiles p WHERE ` + cond

	found, err := r.queryProfiles(ctx, query, args)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ID]*core.Profile, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]*core.Profile, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// GetMeasurements returns the measurement rows of a profile ordered by depth.
func (r *ProfileRepository) GetMeasurements(ctx context.Context, profileID core.ID) ([]*core.Measurement, error) {
	b := r.backend
	query := `SELECT id, profile_id, depth, data FROM measurements WHERE profile_id = ` + b.placeholder(1) + ` ORDER BY depth, id`
	rows, err := b.conn(ctx).QueryContext(ctx, query, int64(profileID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list measurements")
	}
	defer rows.Close()

	list := []*core.Measurement{}
	for rows.Next() {
		var (
			m    core.Measurement
			id   int64
			pid  int64
			data []byte
		)
		if err := rows.Scan(&id, &pid, &m.Depth, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan measurement")
		}
		m.ID, m.ProfileID = core.ID(id), core.ID(pid)
		if err := json.Unmarshal(data, &m.Data); err != nil {
			return nil, errors.Wrap(err, "failed to decode measurement data")
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// SearchProfiles returns profiles matching filter.
func (r *ProfileRepository) SearchProfiles(ctx context.Context, filter core.Filter, offset, limit int) ([]*core.Profile, error) {
	if offset < 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	b := r.backend
	where, args := b.whereFilter(filter, nil)
	args = append(args, limit, offset)
	query := `SELECT ` + profileColumns + ` FROM float_profiles p WHERE ` + where +
		` ORDER BY p.timestamp, p.id LIMIT ` + b.placeholder(len(args)-1) + ` OFFSET ` + b.placeholder(len(args))
	return r.queryProfiles(ctx, query, args)
}

// CandidateIDs returns the IDs of at most limit profiles matching filter.
func (r *ProfileRepository) CandidateIDs(ctx context.Context, filter core.Filter, limit int) ([]core.ID, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	b := r.backend
	where, args := b.whereFilter(filter, nil)
	args = append(args, limit)
	query := `SELECT p.id FROM float_profiles p WHERE ` + where + ` ORDER BY p.id LIMIT ` + b.placeholder(len(args))

	rows, err := b.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select candidate ids")
	}
	defer rows.Close()

	ids := []core.ID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate id")
		}
		ids = append(ids, core.ID(id))
	}
	return ids, rows.Err()
}

// CountProfiles returns the total number of stored profiles.
func (r *ProfileRepository) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := r.backend.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM float_profiles`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count profiles")
	}
	return n, nil
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query string, args []any) ([]*core.Profile, error) {
	rows, err := r.backend.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query profiles")
	}
	defer rows.Close()

	list := []*core.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan profile")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read profiles")
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*core.Profile, error) {
	var (
		p    core.Profile
		id   int64
		ts   timeColumn
		data []byte
	)
	if err := row.Scan(&id, &p.FloatID, &ts, &p.Latitude, &p.Longitude, &data); err != nil {
		return nil, err
	}
	p.ID = core.ID(id)
	p.Timestamp = ts.Time
	if err := json.Unmarshal(data, &p.Measurements); err != nil {
		return nil, errors.Wrap(err, "failed to decode measurements")
	}
	if p.Measurements == nil {
		p.Measurements = core.Measurements{}
	}
	return &p, nil
}

func measurementsOrEmpty(m core.Measurements) core.Measurements {
	if m == nil {
		return core.Measurements{}
	}
	return m
}
