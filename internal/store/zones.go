package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agromind/agromind-backend/internal/model"
)

// ZonesRepo is the zone record store: the single source of truth the
// reconciliation engine reads and mutates.
type ZonesRepo struct {
	pool *pgxpool.Pool
}

func NewZonesRepo(pool *pgxpool.Pool) *ZonesRepo {
	return &ZonesRepo{pool: pool}
}

const zoneColumns = `id, user_id, name, type, sensors, status, config, version, created_at, updated_at`

func scanZone(row pgx.Row) (model.Zone, error) {
	var (
		z       model.Zone
		sensors []byte
		status  []byte
		config  []byte
	)
	err := row.Scan(&z.ID, &z.UserID, &z.Name, &z.Type, &sensors, &status, &config, &z.Version, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Zone{}, ErrZoneNotFound
		}
		return model.Zone{}, err
	}
	if err := json.Unmarshal(sensors, &z.Sensors); err != nil {
		return model.Zone{}, fmt.Errorf("decode sensors doc: %w", err)
	}
	if err := json.Unmarshal(status, &z.Status); err != nil {
		return model.Zone{}, fmt.Errorf("decode status doc: %w", err)
	}
	if err := json.Unmarshal(config, &z.Config); err != nil {
		return model.Zone{}, fmt.Errorf("decode config doc: %w", err)
	}
	return z, nil
}

func marshalDocs(z model.Zone) (sensors, status, config []byte, err error) {
	if sensors, err = json.Marshal(z.Sensors); err != nil {
		return nil, nil, nil, err
	}
	if status, err = json.Marshal(z.Status); err != nil {
		return nil, nil, nil, err
	}
	if config, err = json.Marshal(z.Config); err != nil {
		return nil, nil, nil, err
	}
	return sensors, status, config, nil
}

func (r *ZonesRepo) GetZone(ctx context.Context, id int64) (model.Zone, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id)
	return scanZone(row)
}

func (r *ZonesRepo) ListZones(ctx context.Context, userID int64) ([]model.Zone, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+zoneColumns+` FROM zones WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []model.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (r *ZonesRepo) CreateZone(ctx context.Context, z model.Zone) (model.Zone, error) {
	sensors, status, config, err := marshalDocs(z)
	if err != nil {
		return model.Zone{}, err
	}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO zones (user_id, name, type, sensors, status, config, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
		RETURNING `+zoneColumns,
		z.UserID, z.Name, string(z.Type), sensors, status, config, now)
	return scanZone(row)
}

// UpdateZone writes the whole record back with a compare-and-swap on the
// version stamp. A lost race surfaces as ErrVersionConflict so the caller
// can re-read and retry instead of silently discarding the other write.
func (r *ZonesRepo) UpdateZone(ctx context.Context, z model.Zone) error {
	sensors, status, config, err := marshalDocs(z)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE zones
		SET name = $2, type = $3, sensors = $4, status = $5, config = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $7`,
		z.ID, z.Name, string(z.Type), sensors, status, config, z.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// distinguish "gone" from "raced"
		var exists bool
		if qerr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM zones WHERE id = $1)`, z.ID).Scan(&exists); qerr != nil {
			return qerr
		}
		if !exists {
			return ErrZoneNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *ZonesRepo) DeleteZone(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}
