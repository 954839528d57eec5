package domain

import "strings"

// KeySeparator joins the debtor and creditor INN inside a PairKey.
const KeySeparator = "|"

// PairKey identifies one (debtor, creditor) lookup. The same key is used in
// every cache for the lifetime of a run.
type PairKey string

// NewPairKey builds the key for a debtor/creditor pair.
func NewPairKey(debtor, creditor string) PairKey {
	return PairKey(strings.TrimSpace(debtor) + KeySeparator + strings.TrimSpace(creditor))
}

// ParsePairKey converts a raw cache key back into a PairKey.
func ParsePairKey(raw string) PairKey {
	return PairKey(raw)
}

// Split returns the debtor and creditor halves of the key.
func (k PairKey) Split() (debtor, creditor string) {
	debtor, creditor, _ = strings.Cut(string(k), KeySeparator)
	return debtor, creditor
}

// Valid reports whether both INNs are present.
func (k PairKey) Valid() bool {
	debtor, creditor := k.Split()
	return debtor != "" && creditor != ""
}

func (k PairKey) String() string {
	return string(k)
}
