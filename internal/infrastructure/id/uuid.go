package id

import "github.com/google/uuid"

// UUIDGenerator issues random identifiers for locally created entities
// (products). Order identities come from the payment gateway instead.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
