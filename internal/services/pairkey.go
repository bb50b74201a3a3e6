package services

import (
	"bytes"

	"github.com/google/uuid"
)

// PairKey is the canonical form of an unordered pair of accounts.
// Low sorts strictly before High using byte order, which matches the
// ordering PostgreSQL applies to uuid columns.
type PairKey struct {
	Low  uuid.UUID
	High uuid.UUID
}

// Canonicalize orders a and b. Equal or nil identifiers are rejected.
func Canonicalize(a, b uuid.UUID) (PairKey, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return PairKey{}, ErrNilID
	}
	switch bytes.Compare(a[:], b[:]) {
	case 0:
		return PairKey{}, ErrSelfPair
	case 1:
		a, b = b, a
	}
	return PairKey{Low: a, High: b}, nil
}

func (k PairKey) Contains(id uuid.UUID) bool {
	return id == k.Low || id == k.High
}

func (k PairKey) Other(id uuid.UUID) uuid.UUID {
	if id == k.Low {
		return k.High
	}
	return k.Low
}

func (k PairKey) String() string {
	return k.Low.String() + ":" + k.High.String()
}
