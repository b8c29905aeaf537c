package chathub_test

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/ratelimit"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateSession(participantA, participantB string) (*models.Session, error) {
	args := m.Called(participantA, participantB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStorage) FindSessionByParticipant(id string) (*models.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStorage) GetSessionByID(sessionID string) (*models.Session, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStorage) GetIdleSessions(olderThan time.Time) ([]models.Session, error) {
	args := m.Called(olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *MockStorage) EndSession(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessages(sessionID string) ([]models.Message, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) PublishEvent(ev models.Event) error {
	args := m.Called(ev)
	return args.Error(0)
}

// mockClient is a test double for the chathub.Client interface. Events pushed
// by the hub land in the buffered Recv channel.
type mockClient struct {
	userID    string
	sessionID string
	Recv      chan models.Event
}

func newMockClient(id string) *mockClient {
	return &mockClient{
		userID: id,
		Recv:   make(chan models.Event, 32), // buffered to prevent blocking in tests
	}
}

func (c *mockClient) GetUserID() string                   { return c.userID }
func (c *mockClient) GetSessionID() string                { return c.sessionID }
func (c *mockClient) SetSessionID(id string)              { c.sessionID = id }
func (c *mockClient) GetSendChannel() chan<- models.Event { return c.Recv }
func (c *mockClient) Run()                                {}
func (c *mockClient) Close()                              {}

// received drains the client's channel and returns the event names in order.
func (c *mockClient) received() []string {
	var names []string
	for {
		select {
		case ev := <-c.Recv:
			names = append(names, ev.Name)
		default:
			return names
		}
	}
}

// receivedEvents drains the client's channel and returns the raw events.
func (c *mockClient) receivedEvents() []models.Event {
	var evs []models.Event
	for {
		select {
		case ev := <-c.Recv:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// testGovernorConfig mirrors the production message limits.
var testGovernorConfig = ratelimit.Config{
	Window:      60 * time.Second,
	MaxEvents:   30,
	MinInterval: 500 * time.Millisecond,
	BlockFor:    30 * time.Second,
}

// createTestHub wires a hub + matcher pair over the mock storage with a mock
// clock, without starting any of the background goroutines.
func createTestHub(storage *MockStorage, clk clock.Clock) (*chathub.ManagerService, *chathub.MatcherService) {
	governor := ratelimit.New(testGovernorConfig, clk)
	hub := chathub.NewManagerService(storage, governor, clk)
	matcher := chathub.NewMatcherService(hub, storage, clk)
	hub.SetMatcher(matcher)
	return hub, matcher
}

// connect registers a mock client directly in the hub's client table, without
// going through the matchmaking path.
func connect(hub *chathub.ManagerService, id string) *mockClient {
	c := newMockClient(id)
	hub.Clients[id] = c
	return c
}
