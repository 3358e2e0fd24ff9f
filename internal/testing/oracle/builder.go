package oracle

import (
	"github.com/aurumchain/go-aurum/internal/core/hardfork"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
)

// Default rate values used by the builder. Arbitrary but nonzero, scaled to
// atomic units so records look like real quotes.
const (
	DefaultSpot          = 1_500_000_000_000
	DefaultMovingAverage = 1_450_000_000_000
)

// RecordBuilder provides a fluent interface for assembling pricing records.
type RecordBuilder struct {
	record oracle.PricingRecord
	key    *SigningKey
}

// Record creates a new RecordBuilder for a quote produced at timestamp.
// The record starts fully populated: conversion-era version and both rates
// set, so the zero-configuration Build() yields a structurally valid record.
func Record(timestamp uint64) *RecordBuilder {
	return &RecordBuilder{
		record: oracle.PricingRecord{
			Version:       hardfork.VersionConversion,
			Spot:          DefaultSpot,
			MovingAverage: DefaultMovingAverage,
			Timestamp:     timestamp,
		},
	}
}

// Version sets the record version tag.
func (b *RecordBuilder) Version(v uint64) *RecordBuilder {
	b.record.Version = v
	return b
}

// Spot sets the spot rate.
func (b *RecordBuilder) Spot(v uint64) *RecordBuilder {
	b.record.Spot = v
	return b
}

// MovingAverage sets the moving average rate.
func (b *RecordBuilder) MovingAverage(v uint64) *RecordBuilder {
	b.record.MovingAverage = v
	return b
}

// Timestamp overrides the record timestamp.
func (b *RecordBuilder) Timestamp(ts uint64) *RecordBuilder {
	b.record.Timestamp = ts
	return b
}

// Signature sets the raw signature bytes explicitly, clearing any signing key
// set earlier.
func (b *RecordBuilder) Signature(sig [oracle.SignatureSize]byte) *RecordBuilder {
	b.record.Signature = sig
	b.key = nil
	return b
}

// SignedBy signs the record with key at Build time, so field changes made
// after this call are still covered by the signature.
func (b *RecordBuilder) SignedBy(key *SigningKey) *RecordBuilder {
	b.key = key
	return b
}

// Build constructs the pricing record, signing it if a key was supplied.
func (b *RecordBuilder) Build() oracle.PricingRecord {
	rec := b.record
	if b.key != nil {
		rec.Signature = b.key.Sign(rec.SignableMessage())
	}
	return rec
}
