package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"dispatch/internal/domain"
	"dispatch/internal/realtime"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is an in-memory TripRepository. Every Mutate holds the
// store lock across read, check and write.
type MockTripRepository struct {
	mu     sync.Mutex
	trips  map[string]*domain.Trip
	routes map[string][]domain.RoutePoint

	// Counters for verification
	CreateCallCount int32
	MutateCallCount int32
	AppendCallCount int32

	// Error injection
	CreateError error
	MutateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips:  make(map[string]*domain.Trip),
		routes: make(map[string][]domain.RoutePoint),
	}
}

// AddTrip stores a trip directly (for test setup).
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip.Clone()
}

// GetTrip returns a copy of the stored trip for assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil
	}
	return t.Clone()
}

// RouteLen returns the number of recorded route points of a trip.
func (m *MockTripRepository) RouteLen(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.routes[id])
}

func (m *MockTripRepository) snapshot() map[string]*domain.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*domain.Trip, len(m.trips))
	for id, t := range m.trips {
		out[id] = t.Clone()
	}
	return out
}

func (m *MockTripRepository) restore(trips map[string]*domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = trips
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MockTripRepository) List(ctx context.Context, f repository.TripFilter) ([]*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trip, 0)
	for _, t := range m.trips {
		if f.CompanyID != "" && t.CompanyID != f.CompanyID {
			continue
		}
		if f.DriverID != "" && t.Driver() != f.DriverID {
			continue
		}
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Active && t.Status != domain.TripStatusAssigned && t.Status != domain.TripStatusInProgress {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MockTripRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*domain.Trip, error) {
	atomic.AddInt32(&m.MutateCallCount, 1)
	if m.MutateError != nil {
		return nil, m.MutateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.trips[id] = working.Clone()
	return working, nil
}

func (m *MockTripRepository) SetConfirmationCode(ctx context.Context, id, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	if t.ConfirmationCode != nil {
		return *t.ConfirmationCode, nil
	}
	for otherID, other := range m.trips {
		if otherID != id && other.Code() == code {
			return "", repository.ErrCodeTaken
		}
	}
	t.ConfirmationCode = domain.StringPtr(code)
	return code, nil
}

func (m *MockTripRepository) GetByConfirmationCode(ctx context.Context, code, driverID string) (*domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips {
		if t.Code() == code && t.Driver() == driverID {
			return t.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTripRepository) AppendRoutePoint(ctx context.Context, tripID, driverID string, point domain.RoutePoint) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok || t.IsTerminal() || t.Driver() != driverID {
		return repository.ErrNotWritable
	}
	m.routes[tripID] = append(m.routes[tripID], point)
	p := point
	t.LastLocation = &p
	return nil
}

func (m *MockTripRepository) RouteHistory(ctx context.Context, tripID string) ([]domain.RoutePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RoutePoint(nil), m.routes[tripID]...), nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *d
	return &found, nil
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository with
// the same conditional claim as the SQL store.
type MockVehicleRepository struct {
	mu       sync.Mutex
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	ClaimCallCount   int32
	ReleaseCallCount int32

	// Error injection
	ReleaseError error
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{vehicles: make(map[string]*domain.Vehicle)}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(v *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

// Status returns the current status of a vehicle.
func (m *MockVehicleRepository) Status(id string) domain.VehicleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vehicles[id]; ok {
		return v.Status
	}
	return ""
}

func (m *MockVehicleRepository) snapshot() map[string]domain.VehicleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.VehicleStatus, len(m.vehicles))
	for id, v := range m.vehicles {
		out[id] = v.Status
	}
	return out
}

func (m *MockVehicleRepository) restore(statuses map[string]domain.VehicleStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, status := range statuses {
		if v, ok := m.vehicles[id]; ok {
			v.Status = status
		}
	}
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *v
	return &found, nil
}

func (m *MockVehicleRepository) Claim(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok || v.Status != domain.VehicleStatusAvailable {
		return repository.ErrVehicleNotAvailable
	}
	v.Status = domain.VehicleStatusInUse
	return nil
}

func (m *MockVehicleRepository) Release(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vehicles[id]; ok && v.Status == domain.VehicleStatusInUse {
		v.Status = domain.VehicleStatusAvailable
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs transactions one at a time against the in-memory
// repositories. A failed transaction restores the trips and vehicle
// statuses it started from.
type MockTransactor struct {
	mu       sync.Mutex
	trips    *MockTripRepository
	drivers  *MockDriverRepository
	vehicles *MockVehicleRepository

	// Counters for verification
	RollbackCount int32

	// Error injection
	BeginError error
}

// NewMockTransactor creates a transactor over the given repositories.
func NewMockTransactor(trips *MockTripRepository, drivers *MockDriverRepository, vehicles *MockVehicleRepository) *MockTransactor {
	return &MockTransactor{trips: trips, drivers: drivers, vehicles: vehicles}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(repository.Stores) error) error {
	if m.BeginError != nil {
		return m.BeginError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	trips := m.trips.snapshot()
	vehicles := m.vehicles.snapshot()
	if err := fn(repository.Stores{Trips: m.trips, Drivers: m.drivers, Vehicles: m.vehicles}); err != nil {
		atomic.AddInt32(&m.RollbackCount, 1)
		m.trips.restore(trips)
		m.vehicles.restore(vehicles)
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK USER DIRECTORY
// ──────────────────────────────────────────────

// MockUserDirectory resolves company managers from a fixed map.
type MockUserDirectory struct {
	mu       sync.Mutex
	managers map[string][]string

	// Counters for verification
	ManagerIDsCallCount int32

	// Error injection
	ManagerIDsError error
}

// NewMockUserDirectory creates a new mock user directory.
func NewMockUserDirectory() *MockUserDirectory {
	return &MockUserDirectory{managers: make(map[string][]string)}
}

// SetManagers sets the manager ids of a company.
func (m *MockUserDirectory) SetManagers(companyID string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.managers[companyID] = ids
}

func (m *MockUserDirectory) ManagerIDs(ctx context.Context, companyID string) ([]string, error) {
	atomic.AddInt32(&m.ManagerIDsCallCount, 1)
	if m.ManagerIDsError != nil {
		return nil, m.ManagerIDsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.managers[companyID]...), nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION & AUDIT REPOSITORIES
// ──────────────────────────────────────────────

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mu            sync.Mutex
	notifications []*domain.Notification

	// Error injection
	CreateError error
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

// ForRecipient returns every notification of a recipient in creation order.
func (m *MockNotificationRepository) ForRecipient(recipientID string) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out
}

// Count returns the number of stored notifications.
func (m *MockNotificationRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *n
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Notification, 0)
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		listed := *n
		out = append(out, &listed)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditEntry

	// Error injection
	CreateError error
}

// NewMockAuditRepository creates a new mock audit repository.
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

// Actions returns the recorded actions in order.
func (m *MockAuditRepository) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// Entries returns a copy of the recorded entries.
func (m *MockAuditRepository) Entries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...)
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of the live location index.
type MockLocationStore struct {
	mu     sync.RWMutex
	points map[string]redis.LivePoint

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{points: make(map[string]redis.LivePoint)}
}

// HasLocation checks if a trip is in the live index.
func (m *MockLocationStore) HasLocation(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.points[tripID]
	return ok
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, p redis.LivePoint) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[p.TripID] = p
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, tripID string) (*redis.LivePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[tripID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, tripID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]mockLock
	seq   int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]mockLock)}
}

func (m *MockLockStore) AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:trip:" + tripID
	if held, exists := m.locks[key]; exists && time.Now().Before(held.expiry) {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.locks[key] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleaseTripLock(ctx context.Context, tripID, token string) (bool, error) {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:trip:" + tripID
	if held, exists := m.locks[key]; !exists || held.token != token {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// IsLocked checks if a trip is locked (for test assertions).
func (m *MockLockStore) IsLocked(tripID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, exists := m.locks["lock:trip:"+tripID]
	return exists && time.Now().Before(held.expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE & MAINTENANCE FLAG
// ──────────────────────────────────────────────

// MockManagerCache is an in-memory manager id cache.
type MockManagerCache struct {
	mu      sync.Mutex
	entries map[string][]string

	// Error injection
	GetError error
}

// NewMockManagerCache creates a new mock manager cache.
func NewMockManagerCache() *MockManagerCache {
	return &MockManagerCache{entries: make(map[string][]string)}
}

func (m *MockManagerCache) GetManagerIDs(ctx context.Context, companyID string) ([]string, bool, error) {
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.entries[companyID]
	return append([]string(nil), ids...), ok, nil
}

func (m *MockManagerCache) SetManagerIDs(ctx context.Context, companyID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[companyID] = append([]string(nil), ids...)
	return nil
}

// MockMaintenanceFlag is an in-memory maintenance switch.
type MockMaintenanceFlag struct {
	enabled atomic.Bool

	// Error injection
	EnabledError error
}

func (m *MockMaintenanceFlag) Enabled(ctx context.Context) (bool, error) {
	if m.EnabledError != nil {
		return false, m.EnabledError
	}
	return m.enabled.Load(), nil
}

func (m *MockMaintenanceFlag) Set(ctx context.Context, enabled bool) error {
	m.enabled.Store(enabled)
	return nil
}

// ──────────────────────────────────────────────
// RECORDING CHANNEL & PUBLISHER
// ──────────────────────────────────────────────

// RecordingChannel captures every realtime publish.
type RecordingChannel struct {
	mu       sync.Mutex
	messages []realtime.Message
}

func (c *RecordingChannel) Publish(ctx context.Context, target realtime.Target, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, realtime.Message{Target: target, Event: event, Payload: payload})
	return nil
}

// Find returns the messages of one event sent to one target.
func (c *RecordingChannel) Find(target realtime.Target, event string) []realtime.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []realtime.Message
	for _, m := range c.messages {
		if m.Target == target && m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// RecordingPublisher captures every trip event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []domain.TripEvent

	// Error injection
	PublishError error
}

func (p *RecordingPublisher) PublishTripEvent(ctx context.Context, ev domain.TripEvent) error {
	if p.PublishError != nil {
		return p.PublishError
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Kinds returns the published event kinds in order.
func (p *RecordingPublisher) Kinds() []domain.TripEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TripEventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

// ──────────────────────────────────────────────
// TEST ENVIRONMENT
// ──────────────────────────────────────────────

// Fixture ids seeded by NewEnv.
const (
	CompanyID      = "company-1"
	OtherCompanyID = "company-2"
	ManagerID      = "manager-1"
	CustomerID     = "customer-1"
	DriverOne      = "driver-1"
	DriverTwo      = "driver-2"
	DriverOffline  = "driver-off"
	DriverBusy     = "driver-busy"
	DriverOther    = "driver-x"
	VehicleOne     = "vehicle-1"
	VehicleTwo     = "vehicle-2"
	VehicleRepair  = "vehicle-m"
	VehicleOther   = "vehicle-x"
)

// Env wires the services against in-memory collaborators.
type Env struct {
	Trips         *MockTripRepository
	Drivers       *MockDriverRepository
	Vehicles      *MockVehicleRepository
	Tx            *MockTransactor
	Directory     *MockUserDirectory
	Notifications *MockNotificationRepository
	Audit         *MockAuditRepository
	Live          *MockLocationStore
	Locks         *MockLockStore
	Cache         *MockManagerCache
	Maintenance   *MockMaintenanceFlag
	Channel       *RecordingChannel
	Publisher     *RecordingPublisher
	LogHook       *test.Hook

	Guard         *service.Guard
	Inbox         *service.NotificationService
	Confirmations *service.ConfirmationService
	Service       *service.TripService
}

// NewEnv builds an Env seeded with one company, two available drivers, a
// busy and an offline driver, vehicles and a driver of another company.
func NewEnv() *Env {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	e := &Env{
		Trips:         NewMockTripRepository(),
		Drivers:       NewMockDriverRepository(),
		Vehicles:      NewMockVehicleRepository(),
		Directory:     NewMockUserDirectory(),
		Notifications: NewMockNotificationRepository(),
		Audit:         NewMockAuditRepository(),
		Live:          NewMockLocationStore(),
		Locks:         NewMockLockStore(),
		Cache:         NewMockManagerCache(),
		Maintenance:   &MockMaintenanceFlag{},
		Channel:       &RecordingChannel{},
		Publisher:     &RecordingPublisher{},
		LogHook:       hook,
	}

	e.Drivers.AddDriver(&domain.Driver{ID: DriverOne, CompanyID: CompanyID, Name: "Ada", Status: domain.DriverStatusAvailable})
	e.Drivers.AddDriver(&domain.Driver{ID: DriverTwo, CompanyID: CompanyID, Name: "Ben", Status: domain.DriverStatusAvailable})
	e.Drivers.AddDriver(&domain.Driver{ID: DriverOffline, CompanyID: CompanyID, Name: "Cy", Status: domain.DriverStatusOffline})
	e.Drivers.AddDriver(&domain.Driver{ID: DriverBusy, CompanyID: CompanyID, Name: "Eve", Status: domain.DriverStatusBusy})
	e.Drivers.AddDriver(&domain.Driver{ID: DriverOther, CompanyID: OtherCompanyID, Name: "Dee", Status: domain.DriverStatusAvailable})
	e.Vehicles.AddVehicle(&domain.Vehicle{ID: VehicleOne, CompanyID: CompanyID, PlateNumber: "AB-123", Status: domain.VehicleStatusAvailable})
	e.Vehicles.AddVehicle(&domain.Vehicle{ID: VehicleTwo, CompanyID: CompanyID, PlateNumber: "CD-456", Status: domain.VehicleStatusAvailable})
	e.Vehicles.AddVehicle(&domain.Vehicle{ID: VehicleRepair, CompanyID: CompanyID, PlateNumber: "EF-789", Status: domain.VehicleStatusMaintenance})
	e.Vehicles.AddVehicle(&domain.Vehicle{ID: VehicleOther, CompanyID: OtherCompanyID, PlateNumber: "GH-012", Status: domain.VehicleStatusAvailable})
	e.Directory.SetManagers(CompanyID, ManagerID)
	e.Tx = NewMockTransactor(e.Trips, e.Drivers, e.Vehicles)

	audit := service.NewAuditService(e.Audit, logger)
	e.Guard = service.NewGuard(e.Maintenance, audit, logger)
	e.Inbox = service.NewNotificationService(e.Notifications, e.Directory, e.Cache, e.Channel, logger)
	e.Confirmations = service.NewConfirmationService(e.Tx, e.Trips, e.Drivers, e.Vehicles, logger)
	locations := service.NewLocationService(e.Trips, e.Live, e.Channel, logger)
	e.Service = service.NewTripService(service.TripServiceDeps{
		Tx:            e.Tx,
		Trips:         e.Trips,
		Drivers:       e.Drivers,
		Locks:         e.Locks,
		Guard:         e.Guard,
		Audit:         audit,
		Notifications: e.Inbox,
		Locations:     locations,
		Confirmations: e.Confirmations,
		Publisher:     e.Publisher,
		Channel:       e.Channel,
		Logger:        logger,
	})
	return e
}

// Actors of the seeded company.
var (
	Admin    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	Company  = domain.Actor{ID: CompanyID, Role: domain.RoleCompany}
	Manager  = domain.Actor{ID: ManagerID, Role: domain.RoleManager, CompanyID: CompanyID}
	Customer = domain.Actor{ID: CustomerID, Role: domain.RoleCustomer, CompanyID: CompanyID}
	Outsider = domain.Actor{ID: OtherCompanyID, Role: domain.RoleCompany}
)

// DriverActor returns the actor of a seeded driver.
func DriverActor(id string) domain.Actor {
	company := CompanyID
	if id == DriverOther {
		company = OtherCompanyID
	}
	return domain.Actor{ID: id, Role: domain.RoleDriver, CompanyID: company}
}

// NewTripRequest returns a valid create request for the seeded company.
func NewTripRequest() service.CreateTripRequest {
	return service.CreateTripRequest{
		CustomerID:  CustomerID,
		Pickup:      domain.Location{Address: "1 Depot Road"},
		Dropoff:     domain.Location{Address: "9 Harbour Street"},
		Items:       []domain.LineItem{{Name: "Rice 5kg", Price: 12.5, Quantity: 2}},
		DeliveryFee: 5,
	}
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
