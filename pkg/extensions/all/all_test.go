package all

import (
	"testing"

	"github.com/aretw0/conduit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionsRegister(t *testing.T) {
	reg := registry.New()
	for _, ext := range Extensions() {
		require.NoError(t, reg.Register(ext), ext.Name)
	}
	names := reg.Extensions()
	assert.Len(t, names, 11)
	assert.Contains(t, names, "google-maps")

	_, err := reg.Connector("sharepoint", "sharepointSite")
	assert.NoError(t, err)
	_, err = reg.Node("logic", "condition")
	assert.NoError(t, err)
}
