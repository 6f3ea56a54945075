package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
)

const timeLayout = time.RFC3339Nano

const (
	deviceColumns = `id, kind, room, power_watts, state, last_on_at, usage_minutes, energy_kwh,
			scheduled_on_at, scheduled_off_at, created_at, updated_at`
	alertColumns = `id, name, kind, device_kind, room, trigger_at, repeat_seconds, threshold_kwh,
			comparator, message, active, auto_delete, trigger_count, last_triggered_at, created_at`
	eventColumns = `id, title, description, start_at, end_at, type, recurrence, actions,
			created_at, updated_at`
)

// SQLiteGateway persists households in the tables created by the
// household_schema migration. Save replaces a user's rows in one
// transaction.
type SQLiteGateway struct {
	db *sql.DB
}

// NewSQLiteGateway creates a gateway over an already-migrated database.
func NewSQLiteGateway(db *sql.DB) *SQLiteGateway {
	return &SQLiteGateway{db: db}
}

// ListUsers returns every user with a saved household.
func (g *SQLiteGateway) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, "SELECT user_id FROM households ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning user: %w", ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating users: %w", ErrPersistence, err)
	}
	return ids, nil
}

// Load reads the complete household of userID.
func (g *SQLiteGateway) Load(ctx context.Context, userID string) (*household.Household, error) {
	h := household.New(userID)

	var updatedAt string
	err := g.db.QueryRowContext(ctx,
		"SELECT version, updated_at FROM households WHERE user_id = ?", userID,
	).Scan(&h.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading household %s: %w", ErrPersistence, userID, err)
	}
	h.UpdatedAt = parseTime(updatedAt)

	loaders := []func(context.Context, *household.Household) error{
		g.loadDevices, g.loadAlerts, g.loadEvents, g.loadExecutions, g.loadDeleted,
	}
	for _, load := range loaders {
		if err := load(ctx, h); err != nil {
			return nil, fmt.Errorf("%w: loading household %s: %w", ErrPersistence, userID, err)
		}
	}
	return h, nil
}

// Save writes h, replacing any earlier version. A snapshot older than the
// stored version is rejected with ErrStaleVersion.
func (g *SQLiteGateway) Save(ctx context.Context, h *household.Household) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting transaction: %w", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var stored int64
	err = tx.QueryRowContext(ctx, "SELECT version FROM households WHERE user_id = ?", h.UserID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("%w: reading version: %w", ErrPersistence, err)
	case stored > h.Version:
		return fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, stored, h.Version)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO households (user_id, version, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at`,
		h.UserID, h.Version, formatTime(h.UpdatedAt),
	); err != nil {
		return fmt.Errorf("%w: upserting household: %w", ErrPersistence, err)
	}

	for _, table := range []string{"devices", "alerts", "calendar_events", "calendar_executions", "deleted_device_energy"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", h.UserID); err != nil {
			return fmt.Errorf("%w: clearing %s: %w", ErrPersistence, table, err)
		}
	}

	writers := []func(context.Context, *sql.Tx, *household.Household) error{
		insertDevices, insertAlerts, insertEvents, insertExecutions, insertDeleted,
	}
	for _, write := range writers {
		if err := write(ctx, tx, h); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing household: %w", ErrPersistence, err)
	}
	return nil
}

func insertDevices(ctx context.Context, tx *sql.Tx, h *household.Household) error {
	for _, d := range h.SortedDevices() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO devices (user_id, room_key, `+deviceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.UserID, d.Key().Room,
			d.ID, string(d.Kind), d.Room, d.PowerRatingWatts, string(d.State),
			nullableTime(d.LastOnAt), d.UsageMinutes, d.EnergyKWh,
			nullableTime(d.ScheduledOnAt), nullableTime(d.ScheduledOffAt),
			formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting device %s: %w", d.Key(), err)
		}
	}
	return nil
}

func insertAlerts(ctx context.Context, tx *sql.Tx, h *household.Household) error {
	for _, a := range h.SortedAlerts() {
		var threshold any
		var comparator any
		if a.Kind == alert.KindEnergyUsage {
			threshold = a.ThresholdKWh
			comparator = string(a.Comparator)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (user_id, `+alertColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.UserID,
			a.ID, a.Name, string(a.Kind), string(a.DeviceKind), a.Room,
			nullableTime(a.TriggerAt), a.RepeatSeconds, threshold, comparator,
			a.Message, boolToInt(a.Active), boolToInt(a.AutoDelete), a.TriggerCount,
			nullableTime(a.LastTriggeredAt), formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting alert %s: %w", a.ID, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, h *household.Household) error {
	for _, e := range h.SortedEvents() {
		actions := e.Actions
		if actions == nil {
			actions = []calendar.Action{}
		}
		actionsJSON, err := json.Marshal(actions)
		if err != nil {
			return fmt.Errorf("marshalling actions of %q: %w", e.Title, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO calendar_events (user_id, title_key, `+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.UserID, calendar.TitleKey(e.Title),
			e.ID, e.Title, e.Description, formatTime(e.Start), formatTime(e.End),
			string(e.Type), string(e.Recurrence), string(actionsJSON),
			formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting event %q: %w", e.Title, err)
		}
	}
	return nil
}

func insertExecutions(ctx context.Context, tx *sql.Tx, h *household.Household) error {
	if h.Ledger == nil {
		return nil
	}
	for _, m := range h.Ledger.Markers() {
		executed, err := json.Marshal(m.Executed)
		if err != nil {
			return fmt.Errorf("marshalling marker: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO calendar_executions (user_id, event_id, occurrence_start, executed)
			VALUES (?, ?, ?, ?)`,
			h.UserID, m.EventID, formatTime(m.OccurrenceStart), string(executed),
		)
		if err != nil {
			return fmt.Errorf("inserting marker for %s: %w", m.EventID, err)
		}
	}
	return nil
}

func insertDeleted(ctx context.Context, tx *sql.Tx, h *household.Household) error {
	for _, r := range h.DeletedDevices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deleted_device_energy (
				user_id, kind, room, power_watts, energy_kwh, usage_minutes, deleted_at, deletion_month
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			h.UserID, string(r.Kind), r.Room, r.PowerRatingWatts, r.EnergyKWh, r.UsageMinutes,
			formatTime(r.DeletedAt), r.DeletionMonth,
		)
		if err != nil {
			return fmt.Errorf("inserting deleted device record: %w", err)
		}
	}
	return nil
}

func (g *SQLiteGateway) loadDevices(ctx context.Context, h *household.Household) error {
	rows, err := g.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE user_id = ?`, h.UserID)
	if err != nil {
		return fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d device.Device
		var kind, state, createdAt, updatedAt string
		var lastOn, schedOn, schedOff sql.NullString
		if err := rows.Scan(
			&d.ID, &kind, &d.Room, &d.PowerRatingWatts, &state, &lastOn,
			&d.UsageMinutes, &d.EnergyKWh, &schedOn, &schedOff, &createdAt, &updatedAt,
		); err != nil {
			return fmt.Errorf("scanning device: %w", err)
		}
		d.Kind = device.Kind(kind)
		d.State = device.State(state)
		d.LastOnAt = parseNullableTime(lastOn)
		d.ScheduledOnAt = parseNullableTime(schedOn)
		d.ScheduledOffAt = parseNullableTime(schedOff)
		d.CreatedAt = parseTime(createdAt)
		d.UpdatedAt = parseTime(updatedAt)
		h.Devices[d.Key()] = &d
	}
	return rows.Err()
}

func (g *SQLiteGateway) loadAlerts(ctx context.Context, h *household.Household) error {
	rows, err := g.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE user_id = ?`, h.UserID)
	if err != nil {
		return fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a alert.Alert
		var kind, devKind, createdAt string
		var triggerAt, comparator, lastTriggered sql.NullString
		var threshold sql.NullFloat64
		var active, autoDelete int
		if err := rows.Scan(
			&a.ID, &a.Name, &kind, &devKind, &a.Room, &triggerAt, &a.RepeatSeconds, &threshold,
			&comparator, &a.Message, &active, &autoDelete, &a.TriggerCount, &lastTriggered, &createdAt,
		); err != nil {
			return fmt.Errorf("scanning alert: %w", err)
		}
		a.Kind = alert.Kind(kind)
		a.DeviceKind = device.Kind(devKind)
		a.TriggerAt = parseNullableTime(triggerAt)
		a.ThresholdKWh = threshold.Float64
		a.Comparator = alert.Comparator(comparator.String)
		a.Active = active != 0
		a.AutoDelete = autoDelete != 0
		a.LastTriggeredAt = parseNullableTime(lastTriggered)
		a.CreatedAt = parseTime(createdAt)
		h.Alerts[a.ID] = &a
	}
	return rows.Err()
}

func (g *SQLiteGateway) loadEvents(ctx context.Context, h *household.Household) error {
	rows, err := g.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE user_id = ?`, h.UserID)
	if err != nil {
		return fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e calendar.Event
		var start, end, typ, recur, actions, createdAt, updatedAt string
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &start, &end, &typ, &recur, &actions, &createdAt, &updatedAt,
		); err != nil {
			return fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
			return fmt.Errorf("unmarshalling actions of %q: %w", e.Title, err)
		}
		e.Start = parseTime(start)
		e.End = parseTime(end)
		e.Type = calendar.EventType(typ)
		e.Recurrence = calendar.Recurrence(recur)
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		h.Events[calendar.TitleKey(e.Title)] = &e
	}
	return rows.Err()
}

func (g *SQLiteGateway) loadExecutions(ctx context.Context, h *household.Household) error {
	rows, err := g.db.QueryContext(ctx,
		`SELECT event_id, occurrence_start, executed FROM calendar_executions WHERE user_id = ?`, h.UserID)
	if err != nil {
		return fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var markers []calendar.Marker
	for rows.Next() {
		var m calendar.Marker
		var occ, executed string
		if err := rows.Scan(&m.EventID, &occ, &executed); err != nil {
			return fmt.Errorf("scanning execution: %w", err)
		}
		if err := json.Unmarshal([]byte(executed), &m.Executed); err != nil {
			return fmt.Errorf("unmarshalling execution: %w", err)
		}
		m.OccurrenceStart = parseTime(occ)
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	h.Ledger = calendar.LoadLedger(markers)
	return nil
}

func (g *SQLiteGateway) loadDeleted(ctx context.Context, h *household.Household) error {
	rows, err := g.db.QueryContext(ctx, `
		SELECT kind, room, power_watts, energy_kwh, usage_minutes, deleted_at, deletion_month
		FROM deleted_device_energy WHERE user_id = ? ORDER BY id`, h.UserID)
	if err != nil {
		return fmt.Errorf("querying deleted devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r device.DeletedEnergyRecord
		var kind, deletedAt string
		if err := rows.Scan(&kind, &r.Room, &r.PowerRatingWatts, &r.EnergyKWh, &r.UsageMinutes, &deletedAt, &r.DeletionMonth); err != nil {
			return fmt.Errorf("scanning deleted device: %w", err)
		}
		r.Kind = device.Kind(kind)
		r.DeletedAt = parseTime(deletedAt)
		h.DeletedDevices = append(h.DeletedDevices, r)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime ignores errors: every stored timestamp is written by formatTime.
func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s) //nolint:errcheck // format is controlled
	return t
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
