// Package block defines the data model shared by every dataserver component.
//
// A caller submits an Envelope: a Header (name, block type, creation time),
// a Body (opaque content) and a claimed checksum of that content. Once the
// checksum is verified the envelope is decomposed into a Record, which is
// what the store persists and what queries return.
//
// # Block Types
//
// BlockType is a closed enumeration. Only the values listed in BlockTypes
// are valid; anything else is rejected as a malformed envelope before any
// hashing takes place.
//
// # Errors
//
// Rejections and lookups that find nothing are reported as *Error values
// carrying an ErrorCode, so the transport can tell "rejected" apart from
// "does not exist" without string matching.
package block
