package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/repository"
)

type recordedEvent struct {
	event string
	id    string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) record(event, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event: event, id: id})
}

func (b *fakeBroadcaster) PublishReading(r *models.Reading) { b.record("new-reading", r.ID) }
func (b *fakeBroadcaster) PublishAlert(a *models.Alert) { b.record("new-alert", a.ID) }
func (b *fakeBroadcaster) PublishStationUpdate(s *models.Station) { b.record("station-update", s.ID) }

func (b *fakeBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.event)
	}
	return out
}

type fakeReadingRepo struct {
	mu       sync.Mutex
	readings []models.Reading
	sensors  map[string]*models.Sensor
	err      error
}

func (r *fakeReadingRepo) Create(_ context.Context, reading *models.Reading) (*models.Reading, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	created := *reading
	created.CreatedAt = time.Now().UTC()
	if s, ok := r.sensors[reading.SensorID]; ok {
		created.Sensor = s
		created.Station = &models.Station{ID: s.StationID}
	}
	r.readings = append(r.readings, created)
	return &created, nil
}

func (r *fakeReadingRepo) sorted(filter func(models.Reading) bool, limit int) []models.Reading {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Reading, 0)
	for _, rd := range r.readings {
		if filter(rd) {
			out = append(out, rd)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeReadingRepo) List(_ context.Context, limit int) ([]models.Reading, error) {
	return r.sorted(func(models.Reading) bool { return true }, limit), nil
}

func (r *fakeReadingRepo) ByStation(_ context.Context, stationID string, limit int) ([]models.Reading, error) {
	return r.sorted(func(rd models.Reading) bool { return rd.StationID == stationID }, limit), nil
}

func (r *fakeReadingRepo) BySensor(_ context.Context, sensorID string, limit int) ([]models.Reading, error) {
	return r.sorted(func(rd models.Reading) bool { return rd.SensorID == sensorID }, limit), nil
}

func (r *fakeReadingRepo) Statistics(_ context.Context, sensorID string, from, to time.Time) (*models.ReadingStatistics, error) {
	return &models.ReadingStatistics{SensorID: sensorID, From: from, To: to}, nil
}

type fakeSensorRepo struct {
	mu      sync.Mutex
	sensors map[string]*models.Sensor
	gets    int
}

func newFakeSensorRepo(sensors ...*models.Sensor) *fakeSensorRepo {
	repo := &fakeSensorRepo{sensors: make(map[string]*models.Sensor)}
	for _, s := range sensors {
		repo.sensors[s.ID] = s
	}
	return repo
}

func (r *fakeSensorRepo) Create(_ context.Context, sensor *models.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sensor
	r.sensors[sensor.ID] = &cp
	return nil
}

func (r *fakeSensorRepo) List(_ context.Context) ([]models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeSensorRepo) ListByStation(_ context.Context, stationID string) ([]models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sensor, 0)
	for _, s := range r.sensors {
		if s.StationID == stationID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSensorRepo) Get(_ context.Context, id string) (*models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	s, ok := r.sensors[id]
	if !ok {
		return nil, repository.ErrSensorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSensorRepo) Update(_ context.Context, sensor *models.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sensors[sensor.ID]; !ok {
		return repository.ErrSensorNotFound
	}
	cp := *sensor
	r.sensors[sensor.ID] = &cp
	return nil
}

func (r *fakeSensorRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sensors[id]; !ok {
		return repository.ErrSensorNotFound
	}
	delete(r.sensors, id)
	return nil
}

type fakeStationRepo struct {
	stations map[string]*models.Station
}

func newFakeStationRepo() *fakeStationRepo {
	return &fakeStationRepo{stations: make(map[string]*models.Station)}
}

func (r *fakeStationRepo) Create(_ context.Context, st *models.Station) error {
	if _, ok := r.stations[st.ID]; ok {
		return repository.ErrDuplicateID
	}
	cp := *st
	r.stations[st.ID] = &cp
	return nil
}

func (r *fakeStationRepo) List(_ context.Context) ([]models.Station, error) {
	out := make([]models.Station, 0, len(r.stations))
	for _, st := range r.stations {
		out = append(out, *st)
	}
	return out, nil
}

func (r *fakeStationRepo) Get(_ context.Context, id string) (*models.Station, error) {
	st, ok := r.stations[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *fakeStationRepo) Update(_ context.Context, st *models.Station) error {
	if _, ok := r.stations[st.ID]; !ok {
		return repository.ErrStationNotFound
	}
	cp := *st
	r.stations[st.ID] = &cp
	return nil
}

func (r *fakeStationRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.stations[id]; !ok {
		return repository.ErrStationNotFound
	}
	delete(r.stations, id)
	return nil
}

type fakeAlertRepo struct {
	alerts map[string]*models.Alert
}

func (r *fakeAlertRepo) List(_ context.Context, status *models.AlertStatus) ([]models.Alert, error) {
	out := make([]models.Alert, 0)
	for _, a := range r.alerts {
		if status == nil || a.Status == *status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) Get(_ context.Context, id string) (*models.Alert, error) {
	a, ok := r.alerts[id]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) CountActive(_ context.Context) (int64, error) {
	var n int64
	for _, a := range r.alerts {
		if a.Status == models.AlertActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeAlertRepo) Transition(_ context.Context, id string, to models.AlertStatus, userID string, resolvedAt *time.Time) (*models.Alert, error) {
	a, ok := r.alerts[id]
	if !ok || a.Status != models.AlertActive {
		return nil, repository.ErrAlertNotActive
	}
	a.Status = to
	a.UserID = &userID
	a.ResolvedAt = resolvedAt
	cp := *a
	return &cp, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	if _, ok := r.users[u.Email]; ok {
		return repository.ErrEmailTaken
	}
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func ptr[T any](v T) *T { return &v }
