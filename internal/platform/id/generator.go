package id

import (
	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Generator creates opaque IDs for audit entries and other external references.
type Generator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewRandom()
	if err != nil {
		return "", crerr.Wrap(err, "generate uuid")
	}
	return v.String(), nil
}

// Sequence returns fixed IDs in order, used where tests need stable identifiers.
type Sequence struct {
	ids  []string
	next int
}

func NewSequence(ids ...string) *Sequence {
	return &Sequence{ids: ids}
}

func (s *Sequence) NewID() (string, error) {
	if s.next >= len(s.ids) {
		return "", crerr.Newf("id sequence exhausted after %d ids", len(s.ids))
	}
	v := s.ids[s.next]
	s.next++
	return v, nil
}
