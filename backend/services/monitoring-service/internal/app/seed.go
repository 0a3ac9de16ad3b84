package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/live"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/password"
	"envmonitor/backend/services/monitoring-service/internal/repository"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// Catalog creates stations and sensors.
type Catalog interface {
	CreateStation(ctx context.Context, actor authz.Actor, in service.StationInput) (*models.Station, error)
	CreateSensor(ctx context.Context, actor authz.Actor, in service.SensorInput) (*models.Sensor, error)
}

// Accounts creates operator accounts.
type Accounts interface {
	CreateUser(ctx context.Context, in service.NewUser) (*models.User, error)
}

// ReadingWriter stores historical readings without evaluating them.
type ReadingWriter interface {
	Create(ctx context.Context, reading *models.Reading) (*models.Reading, error)
}

// SeedOptions controls demo data generation.
type SeedOptions struct {
	Password string
	// History is the number of half-hourly readings per sensor; 0 skips them.
	History int
	Now     time.Time
}

// SeedReport counts what a seed run created.
type SeedReport struct {
	Users    int
	Stations int
	Sensors  int
	Readings int
}

var seedActor = authz.Actor{UserID: "seed", Role: models.RoleAdmin}

type seedStation struct {
	input   service.StationInput
	sensors []service.SensorInput
}

// Seeder loads demo users, stations, sensors and reading history. Existing
// users and stations are left alone, so the run is repeatable.
type Seeder struct {
	catalog  Catalog
	accounts Accounts
	readings ReadingWriter
	logger   *zap.Logger
}

// NewSeeder builds a Seeder.
func NewSeeder(catalog Catalog, accounts Accounts, readings ReadingWriter, logger *zap.Logger) *Seeder {
	return &Seeder{catalog: catalog, accounts: accounts, readings: readings, logger: logger}
}

// NewDatabaseSeeder wires a Seeder straight to Postgres. Catalog changes are
// announced to an empty hub.
func NewDatabaseSeeder(sqlDB *sql.DB, logger *zap.Logger) *Seeder {
	catalog := service.NewCatalogService(
		repository.NewStationRepository(sqlDB),
		repository.NewSensorRepository(sqlDB),
		nil,
		live.NewHub(logger),
		logger,
	)
	return NewSeeder(catalog, NewAccounts(sqlDB, logger), repository.NewReadingRepository(sqlDB), logger)
}

// NewAccounts exposes account creation for the CLI.
func NewAccounts(sqlDB *sql.DB, logger *zap.Logger) *service.AuthService {
	return service.NewAuthService(repository.NewUserRepository(sqlDB), password.NewBcryptHasher(0), nil, logger)
}

// Run creates whatever demo data is missing.
func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	var report SeedReport
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	for _, u := range demoUsers(opts.Password) {
		if _, err := s.accounts.CreateUser(ctx, u); err != nil {
			if errors.Is(err, service.ErrConflict) {
				s.logger.Info("seed user exists", zap.String("email", u.Email))
				continue
			}
			return report, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		report.Users++
	}

	for _, st := range demoStations() {
		station, err := s.catalog.CreateStation(ctx, seedActor, st.input)
		if err != nil {
			if errors.Is(err, service.ErrConflict) {
				s.logger.Info("seed station exists", zap.String("station_id", st.input.ID))
				continue
			}
			return report, fmt.Errorf("seed station %s: %w", st.input.ID, err)
		}
		report.Stations++

		for _, in := range st.sensors {
			in.StationID = &station.ID
			sensor, err := s.catalog.CreateSensor(ctx, seedActor, in)
			if err != nil {
				return report, fmt.Errorf("seed sensor %s: %w", *in.Name, err)
			}
			report.Sensors++

			n, err := s.history(ctx, sensor, opts)
			report.Readings += n
			if err != nil {
				return report, err
			}
		}
	}

	s.logger.Info("seed finished",
		zap.Int("users", report.Users),
		zap.Int("stations", report.Stations),
		zap.Int("sensors", report.Sensors),
		zap.Int("readings", report.Readings),
	)
	return report, nil
}

func (s *Seeder) history(ctx context.Context, sensor *models.Sensor, opts SeedOptions) (int, error) {
	created := 0
	for i := opts.History - 1; i >= 0; i-- {
		ts := opts.Now.Add(-time.Duration(i) * 30 * time.Minute)
		reading := &models.Reading{
			ID:        uuid.NewString(),
			StationID: sensor.StationID,
			SensorID:  sensor.ID,
			Value:     sampleValue(sensor, ts),
			Timestamp: ts,
		}
		if _, err := s.readings.Create(ctx, reading); err != nil {
			return created, fmt.Errorf("seed readings for %s: %w", sensor.ID, err)
		}
		created++
	}
	return created, nil
}

// sampleValue follows a daily sine around the middle of the sensor range,
// clamped to the range and rounded to two decimals.
func sampleValue(sensor *models.Sensor, ts time.Time) float64 {
	lo, hi := 0.0, 100.0
	if sensor.MinValue != nil {
		lo = *sensor.MinValue
	}
	if sensor.MaxValue != nil {
		hi = *sensor.MaxValue
	}
	if sensor.Type == models.SensorSpeciesPresence {
		return 0
	}
	mid := lo + (hi-lo)/2
	amplitude := (hi - lo) / 8
	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	v := mid + math.Sin((hour-6)*math.Pi/12)*amplitude
	v = math.Max(lo, math.Min(hi, v))
	return math.Round(v*100) / 100
}

func demoUsers(pw string) []service.NewUser {
	return []service.NewUser{
		{Email: "admin@envmonitor.local", Name: "Administrator", Password: pw, Role: models.RoleAdmin},
		{Email: "manager@envmonitor.local", Name: "Environmental Manager", Password: pw, Role: models.RoleManager},
		{Email: "researcher@envmonitor.local", Name: "Researcher", Password: pw, Role: models.RoleResearcher},
		{Email: "technician@envmonitor.local", Name: "Technician", Password: pw, Role: models.RoleTechnician},
	}
}

func demoStations() []seedStation {
	return []seedStation{
		{
			input: stationInput("station-1", "Turtle Beach Station", "Sea turtle nesting and water quality", -23.5505, -46.6333),
			sensors: []service.SensorInput{
				sensorInput("Water Temperature", models.SensorTemperature, "°C", 20, 30, 28),
				sensorInput("Turtle Presence", models.SensorSpeciesPresence, "count", 0, 100, 0),
				sensorInput("Water Quality", models.SensorWaterQuality, "index", 0, 100, 50),
				sensorInput("Water pH", models.SensorPH, "pH", 6.5, 8.5, 7.0),
			},
		},
		{
			input: stationInput("station-2", "Atlantic Forest Reserve Station", "Biodiversity and air quality", -23.5489, -46.6388),
			sensors: []service.SensorInput{
				sensorInput("Air Temperature", models.SensorTemperature, "°C", 15, 35, 32),
				sensorInput("Humidity", models.SensorHumidity, "%", 40, 90, 30),
				sensorInput("Air Quality", models.SensorAirQuality, "AQI", 0, 500, 100),
			},
		},
		{
			input: stationInput("station-3", "Clean River Station", "River water quality", -23.5521, -46.6312),
			sensors: []service.SensorInput{
				sensorInput("Dissolved Oxygen", models.SensorDissolvedOxygen, "mg/L", 5, 12, 6),
				sensorInput("Turbidity", models.SensorTurbidity, "NTU", 0, 50, 25),
				sensorInput("pH", models.SensorPH, "pH", 6.5, 8.5, 7.0),
			},
		},
	}
}

func stationInput(id, name, description string, lat, lon float64) service.StationInput {
	return service.StationInput{ID: id, Name: &name, Description: &description, Latitude: &lat, Longitude: &lon}
}

func sensorInput(name string, typ models.SensorType, unit string, lo, hi, threshold float64) service.SensorInput {
	return service.SensorInput{
		Name:           &name,
		Type:           &typ,
		Unit:           &unit,
		MinValue:       &lo,
		MaxValue:       &hi,
		AlertThreshold: &threshold,
	}
}
