package application

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
)

type fakeMasterSKUs struct{ rows [][]string }

func (f *fakeMasterSKUs) FetchMasterSKUs(context.Context) ([][]string, error) {
	return f.rows, nil
}

func TestGenerateMasterSKUList(t *testing.T) {
	transport := newFakeTransport()
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})

	source := &fakeMasterSKUs{rows: [][]string{
		{"DRV100XL99", "Big Driver", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		{"SHORT", "row"}, // skipped
	}}

	err := NewSKUListService(source, transport, logger).GenerateMasterSKUList(context.Background())
	require.NoError(t, err)

	contents, ok := transport.uploads["Inbound/SKU.csv"]
	require.True(t, ok)
	assert.Contains(t, string(contents), "SKU,I,DRV100XL99")
	assert.NotContains(t, string(contents), "SHORT")
}

func TestGenerateMasterSKUListEmptyFeed(t *testing.T) {
	transport := newFakeTransport()
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})

	err := NewSKUListService(&fakeMasterSKUs{}, transport, logger).GenerateMasterSKUList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, transport.uploads)
}
