package starter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsExposeFourFixedLabels(t *testing.T) {
	store := NewMemoryStore(Defaults())

	labels := make([]string, 0, 4)
	for _, s := range store.List() {
		require.NotEmpty(t, s.Message)
		labels = append(labels, s.Label)
	}

	require.Equal(t, []string{
		"Can Ava access my CRM?",
		"Ava, the Top-Rated AI SDR on the market",
		"Create a Campaign",
		"Generate Sample Email",
	}, labels)
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Defaults())

	items := store.List()
	items[0].Label = "changed"

	require.Equal(t, "Can Ava access my CRM?", store.List()[0].Label)
}
