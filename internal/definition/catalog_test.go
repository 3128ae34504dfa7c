package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskreport/pkg/contracts/domain"
)

func TestDefaultCatalog_Sources(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{"contacts", "inventory", "locations", "tickets"}, c.SourceNames())

	fields, ok := c.Fields("tickets")
	require.True(t, ok)
	for _, f := range Default().Fields {
		assert.Contains(t, fields, f, "default fields must be projectable")
	}
}

func TestCatalog_IsImmutable(t *testing.T) {
	c := DefaultCatalog()

	all := c.Sources()
	all["tickets"][0] = "Mutated"
	delete(all, "contacts")
	all["secrets"] = []string{"Password"}

	fields, ok := c.Fields("tickets")
	require.True(t, ok)
	assert.Equal(t, "Id", fields[0])
	assert.True(t, c.HasSource("contacts"))
	assert.False(t, c.HasSource("secrets"))

	fields[0] = "AlsoMutated"
	again, _ := c.Fields("tickets")
	assert.Equal(t, "Id", again[0])
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	in := map[string][]string{"Tickets": {"Id"}}
	c := NewCatalog(in)
	in["Tickets"][0] = "Changed"

	assert.True(t, c.Has("tickets", "Id"))
	assert.True(t, c.Has("TICKETS", "Id"), "source lookup ignores case")
	assert.False(t, c.Has("tickets", "id"), "field lookup is exact")
}

func TestCatalog_UnknownFields(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name string
		def  domain.ReportDefinition
		want []string
	}{
		{
			name: "all known",
			def:  domain.ReportDefinition{Source: "contacts", Fields: []string{"Id", "Email"}},
			want: nil,
		},
		{
			name: "unknown fields in order",
			def:  domain.ReportDefinition{Source: "contacts", Fields: []string{"Shoe", "Id", "Hat"}},
			want: []string{"Shoe", "Hat"},
		},
		{
			name: "unknown source makes every field unknown",
			def:  domain.ReportDefinition{Source: "assets", Fields: []string{"Id"}},
			want: []string{"Id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.UnknownFields(tt.def))
		})
	}
}
