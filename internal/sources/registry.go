package sources

import (
	"context"
	"errors"
	"fmt"

	"deskreport/pkg/contracts/domain"
)

// ErrUnknownSource is returned when a definition names a source that is not
// registered.
var ErrUnknownSource = errors.New("unknown report source")

// TicketLister lists the tickets of a workspace.
type TicketLister interface {
	ListTickets(ctx context.Context, workspaceID string) ([]domain.Ticket, error)
}

// ContactLister lists the contacts of a workspace.
type ContactLister interface {
	ListContacts(ctx context.Context, workspaceID string) ([]domain.Contact, error)
}

// LocationLister lists the locations of a workspace.
type LocationLister interface {
	ListLocations(ctx context.Context, workspaceID string) ([]domain.Location, error)
}

// InventoryLister lists the inventory items of a workspace.
type InventoryLister interface {
	ListInventory(ctx context.Context, workspaceID string) ([]domain.InventoryItem, error)
}

// Collaborators holds one lister per source kind.
type Collaborators struct {
	Tickets   TicketLister
	Contacts  ContactLister
	Locations LocationLister
	Inventory InventoryLister
}

// Registry resolves definition source keys to typed sources.
type Registry struct {
	sources map[Kind]Source
}

// NewRegistry builds a registry covering every Kind. All collaborators are
// required.
func NewRegistry(c Collaborators) (*Registry, error) {
	r := &Registry{sources: make(map[Kind]Source, len(kindNames))}
	for _, k := range AllKinds() {
		src, err := newSource(k, c)
		if err != nil {
			return nil, err
		}
		r.sources[k] = src
	}
	return r, nil
}

// Resolve returns the source for a definition key.
func (r *Registry) Resolve(name string) (Source, error) {
	k, ok := ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return r.sources[k], nil
}

// Columns returns the column names of every registered source keyed by
// source name.
func (r *Registry) Columns() map[string][]string {
	out := make(map[string][]string, len(r.sources))
	for k, src := range r.sources {
		out[k.String()] = src.Columns()
	}
	return out
}

func newSource(k Kind, c Collaborators) (Source, error) {
	switch k {
	case KindTickets:
		if c.Tickets == nil {
			return nil, fmt.Errorf("no lister configured for %s", k)
		}
		return &table[domain.Ticket]{kind: k, columns: ticketColumns, list: c.Tickets.ListTickets}, nil
	case KindContacts:
		if c.Contacts == nil {
			return nil, fmt.Errorf("no lister configured for %s", k)
		}
		return &table[domain.Contact]{kind: k, columns: contactColumns, list: c.Contacts.ListContacts}, nil
	case KindLocations:
		if c.Locations == nil {
			return nil, fmt.Errorf("no lister configured for %s", k)
		}
		return &table[domain.Location]{kind: k, columns: locationColumns, list: c.Locations.ListLocations}, nil
	case KindInventory:
		if c.Inventory == nil {
			return nil, fmt.Errorf("no lister configured for %s", k)
		}
		return &table[domain.InventoryItem]{kind: k, columns: inventoryColumns, list: c.Inventory.ListInventory}, nil
	}
	return nil, fmt.Errorf("source kind %d has no table", int(k))
}

var ticketColumns = []column[domain.Ticket]{
	{"Id", func(t *domain.Ticket) any { return t.ID }},
	{"Subject", func(t *domain.Ticket) any { return t.Subject }},
	{"Status", func(t *domain.Ticket) any { return t.Status }},
	{"Priority", func(t *domain.Ticket) any { return t.Priority }},
	{"Category", func(t *domain.Ticket) any { return t.Category }},
	{"AssignedTo", func(t *domain.Ticket) any { return t.AssignedTo }},
	{"ContactName", func(t *domain.Ticket) any { return t.ContactName }},
	{"LocationName", func(t *domain.Ticket) any { return t.LocationName }},
	{"CreatedAt", func(t *domain.Ticket) any { return t.CreatedAt }},
	{"UpdatedAt", func(t *domain.Ticket) any { return t.UpdatedAt }},
	{"DueAt", func(t *domain.Ticket) any { return t.DueAt }},
}

var contactColumns = []column[domain.Contact]{
	{"Id", func(c *domain.Contact) any { return c.ID }},
	{"Name", func(c *domain.Contact) any { return c.Name }},
	{"Email", func(c *domain.Contact) any { return c.Email }},
	{"Phone", func(c *domain.Contact) any { return c.Phone }},
	{"Company", func(c *domain.Contact) any { return c.Company }},
	{"Title", func(c *domain.Contact) any { return c.Title }},
	{"CreatedAt", func(c *domain.Contact) any { return c.CreatedAt }},
}

var locationColumns = []column[domain.Location]{
	{"Id", func(l *domain.Location) any { return l.ID }},
	{"Name", func(l *domain.Location) any { return l.Name }},
	{"Address", func(l *domain.Location) any { return l.Address }},
	{"City", func(l *domain.Location) any { return l.City }},
	{"Region", func(l *domain.Location) any { return l.Region }},
	{"Country", func(l *domain.Location) any { return l.Country }},
	{"PostalCode", func(l *domain.Location) any { return l.PostalCode }},
	{"CreatedAt", func(l *domain.Location) any { return l.CreatedAt }},
}

var inventoryColumns = []column[domain.InventoryItem]{
	{"Id", func(i *domain.InventoryItem) any { return i.ID }},
	{"Name", func(i *domain.InventoryItem) any { return i.Name }},
	{"Sku", func(i *domain.InventoryItem) any { return i.SKU }},
	{"Category", func(i *domain.InventoryItem) any { return i.Category }},
	{"Quantity", func(i *domain.InventoryItem) any { return i.Quantity }},
	{"UnitCost", func(i *domain.InventoryItem) any { return i.UnitCost }},
	{"LocationName", func(i *domain.InventoryItem) any { return i.LocationName }},
	{"CreatedAt", func(i *domain.InventoryItem) any { return i.CreatedAt }},
}
