package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/hearth/internal/alert"
	"github.com/nerrad567/hearth/internal/calendar"
	"github.com/nerrad567/hearth/internal/device"
	"github.com/nerrad567/hearth/internal/household"
	"github.com/nerrad567/hearth/internal/infrastructure/database"
	"github.com/nerrad567/hearth/migrations"
)

var now = time.Date(2026, 4, 10, 7, 30, 0, 123456789, time.UTC)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func sampleHousehold(userID string) *household.Household {
	h := household.New(userID)

	tv := &device.Device{
		ID: "tv-1", Kind: device.KindTV, Room: "Living Room", PowerRatingWatts: 150,
		State: device.StateOff, CreatedAt: now, UpdatedAt: now,
	}
	device.OnStateChange(tv, device.StateOn, now)
	tv.SetTimer(device.StateOff, now.Add(2*time.Hour))
	h.Devices[tv.Key()] = tv

	mw := &device.Device{
		ID: "mw-1", Kind: device.KindMicrowave, Room: "Kitchen", PowerRatingWatts: 1200,
		State: device.StateOff, EnergyKWh: 0.42, UsageMinutes: 21, CreatedAt: now, UpdatedAt: now,
	}
	h.Devices[mw.Key()] = mw

	at := now.Add(time.Hour)
	h.Alerts["al-1"] = &alert.Alert{
		ID: "al-1", Name: "Bedtime", Kind: alert.KindTimeBased, DeviceKind: device.KindTV, Room: "Living Room",
		TriggerAt: &at, RepeatSeconds: 86400, Active: true, AutoDelete: false, CreatedAt: now,
	}
	h.Alerts["al-2"] = &alert.Alert{
		ID: "al-2", Name: "Microwave budget", Kind: alert.KindEnergyUsage, DeviceKind: device.KindMicrowave,
		Room: "Kitchen", ThresholdKWh: 0.01, Comparator: alert.GreaterThan, Active: true, AutoDelete: true,
		TriggerCount: 2, CreatedAt: now.Add(time.Second),
	}

	ev := &calendar.Event{
		ID: "ev-1", Title: "Movie Night", Description: "popcorn", Start: now, End: now.Add(2 * time.Hour),
		Type: calendar.TypeRoutine, Recurrence: calendar.RecurWeekly, CreatedAt: now, UpdatedAt: now,
		Actions: []calendar.Action{
			{DeviceKind: device.KindTV, Room: "Living Room", DesiredState: device.StateOn},
			{DeviceKind: device.KindLight, Room: "Living Room", DesiredState: device.StateOff, OffsetMinutes: 5},
		},
	}
	h.Events[calendar.TitleKey(ev.Title)] = ev
	h.Ledger.MarkExecuted("ev-1", now, 0)

	h.DeletedDevices = []device.DeletedEnergyRecord{{
		Kind: device.KindFan, Room: "Attic", PowerRatingWatts: 40, EnergyKWh: 3.5, UsageMinutes: 5250,
		DeletedAt: now, DeletionMonth: "2026-04",
	}}

	h.Touch(now)
	return h
}

func TestSQLiteGateway_SaveLoad(t *testing.T) {
	db := setupTestDB(t)
	g := NewSQLiteGateway(db.DB)
	ctx := context.Background()

	want := sampleHousehold("alice")
	if err := g.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := g.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Version != want.Version {
		t.Errorf("Version = %d, want %d", got.Version, want.Version)
	}

	tv := got.Device(device.NewKey(device.KindTV, "living room"))
	if tv == nil {
		t.Fatal("TV missing after load")
	}
	if tv.State != device.StateOn || tv.LastOnAt == nil || !tv.LastOnAt.Equal(now) {
		t.Errorf("TV state/LastOnAt = %v/%v", tv.State, tv.LastOnAt)
	}
	if tv.ScheduledOffAt == nil || !tv.ScheduledOffAt.Equal(now.Add(2*time.Hour)) {
		t.Errorf("TV ScheduledOffAt = %v", tv.ScheduledOffAt)
	}
	if tv.ScheduledOnAt != nil {
		t.Errorf("TV ScheduledOnAt = %v, want nil", tv.ScheduledOnAt)
	}

	mw := got.Device(device.NewKey(device.KindMicrowave, "Kitchen"))
	if mw == nil || math.Abs(mw.EnergyKWh-0.42) > 1e-12 || mw.UsageMinutes != 21 {
		t.Errorf("microwave counters = %+v", mw)
	}

	bedtime := got.Alerts["al-1"]
	if bedtime == nil || bedtime.RepeatSeconds != 86400 || bedtime.AutoDelete || bedtime.Comparator != "" {
		t.Errorf("time alert = %+v", bedtime)
	}
	budget := got.Alerts["al-2"]
	if budget == nil || budget.Comparator != alert.GreaterThan || budget.ThresholdKWh != 0.01 || budget.TriggerCount != 2 {
		t.Errorf("energy alert = %+v", budget)
	}

	ev := got.Event("movie night")
	if ev == nil || len(ev.Actions) != 2 || ev.Actions[1].OffsetMinutes != 5 || ev.Recurrence != calendar.RecurWeekly {
		t.Fatalf("event = %+v", ev)
	}
	if !got.Ledger.Executed("ev-1", now, 0) || got.Ledger.Executed("ev-1", now, 1) {
		t.Error("ledger markers not preserved")
	}

	if len(got.DeletedDevices) != 1 || got.DeletedDevices[0].EnergyKWh != 3.5 {
		t.Errorf("deleted devices = %+v", got.DeletedDevices)
	}
}

func TestSQLiteGateway_SaveReplacesChildren(t *testing.T) {
	db := setupTestDB(t)
	g := NewSQLiteGateway(db.DB)
	ctx := context.Background()

	h := sampleHousehold("bob")
	if err := g.Save(ctx, h); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	delete(h.Devices, device.NewKey(device.KindMicrowave, "Kitchen"))
	delete(h.Alerts, "al-2")
	h.Touch(now.Add(time.Minute))
	if err := g.Save(ctx, h); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := g.Load(ctx, "bob")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Devices) != 1 || len(got.Alerts) != 1 {
		t.Errorf("devices=%d alerts=%d, want 1/1", len(got.Devices), len(got.Alerts))
	}
}

func TestSQLiteGateway_StaleVersion(t *testing.T) {
	db := setupTestDB(t)
	g := NewSQLiteGateway(db.DB)
	ctx := context.Background()

	newer := sampleHousehold("carol")
	newer.Touch(now)
	older := newer.DeepCopy()
	older.Version--

	if err := g.Save(ctx, newer); err != nil {
		t.Fatalf("Save(newer) error = %v", err)
	}
	if err := g.Save(ctx, older); !errors.Is(err, ErrStaleVersion) {
		t.Errorf("Save(older) error = %v, want ErrStaleVersion", err)
	}
}

func TestSQLiteGateway_NotFoundAndList(t *testing.T) {
	db := setupTestDB(t)
	g := NewSQLiteGateway(db.DB)
	ctx := context.Background()

	if _, err := g.Load(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Load(nobody) error = %v, want ErrUserNotFound", err)
	}

	for _, id := range []string{"zed", "amy"} {
		if err := g.Save(ctx, household.New(id)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	users, err := g.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0] != "amy" || users[1] != "zed" {
		t.Errorf("ListUsers() = %v, want [amy zed]", users)
	}
}

func TestSQLiteGateway_BeginFailureIsTransient(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer mockDB.Close() //nolint:errcheck // test cleanup

	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	g := NewSQLiteGateway(mockDB)
	err = g.Save(context.Background(), household.New("dave"))
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Save() error = %v, want ErrPersistence", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteGateway_StaleCheckRollsBack(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer mockDB.Close() //nolint:errcheck // test cleanup

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM households").
		WithArgs("erin").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(10))
	mock.ExpectRollback()

	h := household.New("erin")
	h.Version = 3

	g := NewSQLiteGateway(mockDB)
	if err := g.Save(context.Background(), h); !errors.Is(err, ErrStaleVersion) {
		t.Errorf("Save() error = %v, want ErrStaleVersion", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteGateway_LoadQueryFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer mockDB.Close() //nolint:errcheck // test cleanup

	mock.ExpectQuery("SELECT version, updated_at FROM households").
		WithArgs("frank").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery("SELECT user_id FROM households").
		WillReturnError(errors.New("database is locked"))

	g := NewSQLiteGateway(mockDB)
	if _, err := g.Load(context.Background(), "frank"); !errors.Is(err, ErrPersistence) {
		t.Errorf("Load() error = %v, want ErrPersistence", err)
	}
	if _, err := g.ListUsers(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Errorf("ListUsers() error = %v, want ErrPersistence", err)
	}
}
