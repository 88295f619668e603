// Package arena provides a fixed-capacity record store addressed directly by id.
//
// An id is split into three contiguous bit fields:
//
//	[ bucket (1/2) ][ slot (1/4) ][ item (1/4) ]
//
// Buckets and slots are allocated on first touch and sized to the full range of
// their field, so memory is bounded by the id space and lookups never hash.
// Records with nearby ids share a slot and stay close in memory.
package arena
