package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ItemKind enumerates what a requisition line can demand.
type ItemKind string

const (
	ItemMaterial  ItemKind = "MATERIAL"
	ItemService   ItemKind = "SERVICE"
	ItemEquipment ItemKind = "EQUIPMENT"
	ItemPPE       ItemKind = "PPE"
)

// ItemRef identifies an item either by master-data id or, for legacy rows
// that never got a foreign key, by description plus category.
type ItemRef struct {
	Kind        ItemKind
	ID          int64
	Description string
	Category    string
}

// Resolved reports whether the reference carries a master-data id.
func (r ItemRef) Resolved() bool { return r.ID > 0 }

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDescription lowercases, collapses whitespace and strips diacritics
// so that "Cemento Portland  Tipo I" and "cemento portland tipo i" compare equal.
func NormalizeDescription(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Matches reports whether two references identify the same item. Id equality
// wins when both sides are resolved; anything else falls back to the
// normalized description+category comparison used for legacy rows.
func (r ItemRef) Matches(other ItemRef) bool {
	if r.Kind != "" && other.Kind != "" && r.Kind != other.Kind {
		return false
	}
	if r.Resolved() && other.Resolved() {
		return r.ID == other.ID
	}
	if r.Description == "" || other.Description == "" {
		return false
	}
	return NormalizeDescription(r.Description) == NormalizeDescription(other.Description) &&
		NormalizeDescription(r.Category) == NormalizeDescription(other.Category)
}
