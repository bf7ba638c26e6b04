package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stride/internal/modules/device/domain"
	deviceout "stride/internal/modules/device/port/out"
	apperrors "stride/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// SQLiteDeviceStore persists known devices. Only identity and the last
// connection time survive restarts; live facts like RSSI, features and
// battery level are session state and stay in memory.
type SQLiteDeviceStore struct {
	db *sql.DB
}

func NewSQLiteDeviceStore(db *sql.DB) (deviceout.DeviceStore, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS device (
  identifier TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  last_connected TEXT
);
`
	if _, err := db.ExecContext(context.Background(), ddl); err != nil {
		return nil, fmt.Errorf("create device table: %w", err)
	}
	return &SQLiteDeviceStore{db: db}, nil
}

func (s *SQLiteDeviceStore) Save(ctx context.Context, info domain.Info) error {
	if info.DeviceID == "" {
		return apperrors.ErrInvalidInput
	}
	var lastConnected any
	if info.LastConnected != nil {
		lastConnected = info.LastConnected.UTC().Format(timeFormat)
	}
	const stmt = `
INSERT INTO device (identifier, name, address, last_connected)
VALUES (?, ?, ?, ?)
ON CONFLICT(identifier) DO UPDATE SET
  name=excluded.name,
  address=excluded.address,
  last_connected=COALESCE(excluded.last_connected, device.last_connected);
`
	if _, err := s.db.ExecContext(ctx, stmt, info.DeviceID, info.Name, info.Address, lastConnected); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

func (s *SQLiteDeviceStore) Get(ctx context.Context, deviceID string) (domain.Info, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identifier, name, address, last_connected FROM device WHERE identifier = ?`,
		deviceID)
	info, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return domain.Info{}, apperrors.ErrDeviceNotFound
	}
	if err != nil {
		return domain.Info{}, fmt.Errorf("get device: %w", err)
	}
	return info, nil
}

func (s *SQLiteDeviceStore) List(ctx context.Context) ([]domain.Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, name, address, last_connected FROM device ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.Info
	for rows.Next() {
		info, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, info)
	}
	return devices, rows.Err()
}

func (s *SQLiteDeviceStore) LastConnected(ctx context.Context) (domain.Info, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT identifier, name, address, last_connected FROM device
WHERE last_connected IS NOT NULL
ORDER BY last_connected DESC LIMIT 1`)
	info, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return domain.Info{}, apperrors.ErrDeviceNotFound
	}
	if err != nil {
		return domain.Info{}, fmt.Errorf("last connected device: %w", err)
	}
	return info, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (domain.Info, error) {
	var (
		deviceID, name, address string
		lastConnected           sql.NullString
	)
	if err := row.Scan(&deviceID, &name, &address, &lastConnected); err != nil {
		return domain.Info{}, err
	}
	var last *time.Time
	if lastConnected.Valid {
		t, err := time.Parse(timeFormat, lastConnected.String)
		if err != nil {
			return domain.Info{}, fmt.Errorf("parse last connected: %w", err)
		}
		last = &t
	}
	return domain.FromStored(deviceID, name, address, last), nil
}
