package sources

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"deskreport/pkg/contracts/domain"
)

// Fixtures is the on-disk layout of a seed file.
type Fixtures struct {
	Tickets   []domain.Ticket        `yaml:"tickets"`
	Contacts  []domain.Contact       `yaml:"contacts"`
	Locations []domain.Location      `yaml:"locations"`
	Inventory []domain.InventoryItem `yaml:"inventory"`
	Reports   []domain.Report        `yaml:"reports"`
}

// LoadFixtures reads a YAML seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a YAML seed document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// MemoryRepository serves every lister from memory. It backs development
// servers and tests; production deployments plug in their own listers.
type MemoryRepository struct {
	mu        sync.RWMutex
	tickets   map[string][]domain.Ticket
	contacts  map[string][]domain.Contact
	locations map[string][]domain.Location
	inventory map[string][]domain.InventoryItem
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tickets:   make(map[string][]domain.Ticket),
		contacts:  make(map[string][]domain.Contact),
		locations: make(map[string][]domain.Location),
		inventory: make(map[string][]domain.InventoryItem),
	}
}

// Seed adds every entity of f, grouped by workspace.
func (m *MemoryRepository) Seed(f *Fixtures) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range f.Tickets {
		m.tickets[t.WorkspaceID] = append(m.tickets[t.WorkspaceID], t)
	}
	for _, c := range f.Contacts {
		m.contacts[c.WorkspaceID] = append(m.contacts[c.WorkspaceID], c)
	}
	for _, l := range f.Locations {
		m.locations[l.WorkspaceID] = append(m.locations[l.WorkspaceID], l)
	}
	for _, i := range f.Inventory {
		m.inventory[i.WorkspaceID] = append(m.inventory[i.WorkspaceID], i)
	}
}

// Collaborators exposes the repository as the full set of source listers.
func (m *MemoryRepository) Collaborators() Collaborators {
	return Collaborators{Tickets: m, Contacts: m, Locations: m, Inventory: m}
}

// ListTickets implements TicketLister.
func (m *MemoryRepository) ListTickets(ctx context.Context, workspaceID string) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Ticket(nil), m.tickets[workspaceID]...), nil
}

// ListContacts implements ContactLister.
func (m *MemoryRepository) ListContacts(ctx context.Context, workspaceID string) ([]domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Contact(nil), m.contacts[workspaceID]...), nil
}

// ListLocations implements LocationLister.
func (m *MemoryRepository) ListLocations(ctx context.Context, workspaceID string) ([]domain.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Location(nil), m.locations[workspaceID]...), nil
}

// ListInventory implements InventoryLister.
func (m *MemoryRepository) ListInventory(ctx context.Context, workspaceID string) ([]domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.InventoryItem(nil), m.inventory[workspaceID]...), nil
}
