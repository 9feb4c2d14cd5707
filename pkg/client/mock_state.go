package client

import "sync"

// MockState is an in-memory StateInterface for tests
type MockState struct {
	mu sync.RWMutex

	config   map[string]string
	history  map[string]string
	firstRun bool
	stateDir string
}

// NewMockState creates a new mock state
func NewMockState() *MockState {
	return &MockState{
		config:   make(map[string]string),
		history:  make(map[string]string),
		firstRun: true,
		stateDir: "/tmp/mock-state",
	}
}

func (m *MockState) GetConfig(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config[key], nil
}

func (m *MockState) SetConfig(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

func (m *MockState) GetLastCharacter() string {
	name, _ := m.GetConfig("last_character")
	return name
}

func (m *MockState) SetLastCharacter(name string) error {
	return m.SetConfig("last_character", name)
}

func (m *MockState) GetLastChannel() string {
	label, _ := m.GetConfig("last_channel")
	return label
}

func (m *MockState) SetLastChannel(label string) error {
	return m.SetConfig("last_channel", label)
}

func (m *MockState) GetLastSuccessfulMethod(serverAddress string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history[serverAddress], nil
}

func (m *MockState) SaveSuccessfulConnection(serverAddress string, method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[serverAddress] = method
	return nil
}

func (m *MockState) GetFirstRun() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.firstRun
}

func (m *MockState) SetFirstRunComplete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firstRun = false
	return nil
}

// SetFirstRun lets tests control the first run flag
func (m *MockState) SetFirstRun(firstRun bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firstRun = firstRun
}

func (m *MockState) GetStateDir() string {
	return m.stateDir
}

func (m *MockState) Close() error {
	return nil
}
