package product_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BharatRVala/rupie-times-sub001/product"
	"github.com/BharatRVala/rupie-times-sub001/subscription"
)

const catalogJSON = `[
	{
		"id": "daily-digest",
		"name": "Daily Digest",
		"description": "All news articles, every day",
		"variants": [
			{"durationLabel": "1 Month", "durationValue": 1, "durationUnit": "months", "price": "999"},
			{"durationLabel": "1 Year", "durationValue": 1, "durationUnit": "years", "price": "9999"}
		]
	},
	{
		"id": "archive-pass",
		"name": "Archive Pass",
		"description": "Historical archive access",
		"variants": [
			{"durationLabel": "2 Weeks", "durationValue": 2, "durationUnit": "weeks", "price": "299"}
		],
		"retired": true
	}
]`

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "catalog")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "products.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(catalogJSON), 0644))
	return path
}

func TestManager(t *testing.T) {
	t.Parallel()

	m, err := product.NewManager(product.ManagerOptions{
		Logger:            zap.NewNop(),
		PathToProductJSON: writeCatalog(t),
	})
	require.NoError(t, err)

	t.Run("lists the whole catalog", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, m.ListDefinedProducts(), 2)
	})

	t.Run("looks up a product by id", func(t *testing.T) {
		t.Parallel()
		p, ok := m.GetDefinedProductByID("daily-digest")
		require.True(t, ok)
		assert.Equal(t, "Daily Digest", p.Name)
		assert.Len(t, p.Variants, 2)

		_, ok = m.GetDefinedProductByID("nope")
		assert.False(t, ok)
	})

	t.Run("resolves a variant by duration label", func(t *testing.T) {
		t.Parallel()
		v, ok := m.GetVariant("daily-digest", "1 Year")
		require.True(t, ok)
		assert.Equal(t, subscription.UnitYears, v.DurationUnit)
		assert.Equal(t, 1, v.DurationValue)

		_, ok = m.GetVariant("daily-digest", "100 Years")
		assert.False(t, ok)

		_, ok = m.GetVariant("nope", "1 Year")
		assert.False(t, ok)
	})

	t.Run("rejects a catalog entry without an id", func(t *testing.T) {
		t.Parallel()
		dir, err := ioutil.TempDir("", "catalog")
		require.NoError(t, err)
		t.Cleanup(func() { os.RemoveAll(dir) })
		path := filepath.Join(dir, "products.json")
		require.NoError(t, ioutil.WriteFile(path, []byte(`[{"name": "No ID"}]`), 0644))

		_, err = product.NewManager(product.ManagerOptions{
			Logger:            zap.NewNop(),
			PathToProductJSON: path,
		})
		require.Error(t, err)
	})
}
