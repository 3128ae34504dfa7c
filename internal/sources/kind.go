package sources

import "strings"

// Kind identifies one of the fixed entity collections a report can read.
type Kind int

const (
	KindTickets Kind = iota
	KindContacts
	KindLocations
	KindInventory
)

var kindNames = [...]string{
	KindTickets:   "tickets",
	KindContacts:  "contacts",
	KindLocations: "locations",
	KindInventory: "inventory",
}

// AllKinds returns every source kind.
func AllKinds() []Kind {
	return []Kind{KindTickets, KindContacts, KindLocations, KindInventory}
}

// String returns the source key used in definitions.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a definition source key to its Kind. Matching ignores case
// and surrounding spaces.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range AllKinds() {
		if kindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}
