package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDescription(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Cemento Portland", "cemento portland"},
		{"  FIERRO   corrugado 1/2\" ", "fierro corrugado 1/2\""},
		{"Clavo de acero", "clavo de acero"},
		{"TUBERÍA PVC Ø 4", "tuberia pvc ø 4"},
		{"Andamio metálico", "andamio metalico"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeDescription(tc.in))
	}
}

func TestItemRefMatches(t *testing.T) {
	byID := ItemRef{Kind: ItemMaterial, ID: 7, Description: "Cemento Portland"}

	t.Run("id wins when both resolved", func(t *testing.T) {
		require.True(t, byID.Matches(ItemRef{Kind: ItemMaterial, ID: 7, Description: "otra cosa"}))
		require.False(t, byID.Matches(ItemRef{Kind: ItemMaterial, ID: 8, Description: "Cemento Portland"}))
	})

	t.Run("legacy fallback by description and category", func(t *testing.T) {
		legacy := ItemRef{Kind: ItemMaterial, Description: "cemento PORTLAND", Category: "Cementos"}
		require.True(t, byID.Matches(ItemRef{Kind: ItemMaterial, Description: "CEMENTO portland"}))
		require.True(t, legacy.Matches(ItemRef{Kind: ItemMaterial, Description: "Cemento Portland", Category: "CEMENTOS"}))
		require.False(t, legacy.Matches(ItemRef{Kind: ItemMaterial, Description: "Cemento Portland", Category: "Agregados"}))
	})

	t.Run("kind mismatch never matches", func(t *testing.T) {
		require.False(t, byID.Matches(ItemRef{Kind: ItemEquipment, ID: 7}))
	})

	t.Run("empty descriptions do not match", func(t *testing.T) {
		require.False(t, ItemRef{Kind: ItemMaterial}.Matches(ItemRef{Kind: ItemMaterial}))
	})
}
