// Package harness runs ingestion scenarios against a fresh block store.
//
// A scenario is a YAML file listing submit, retype and lookup steps with
// optional expectations, followed by assertions on the final store.
// Every run uses an in-memory SQLite store, a fixed clock and sequential
// record IDs, so the resulting trace is byte-stable and can be compared
// against a golden file.
//
// # Scenario Format
//
//	name: hello
//	description: "Submit, look up, reject a bad checksum"
//	steps:
//	  - op: submit
//	    name: Test
//	    block_type: BLOCKTYPEA
//	    content: hello
//	    expect: { ok: true }
//	  - op: submit
//	    name: Test
//	    block_type: BLOCKTYPEA
//	    content: hello
//	    checksum: deadbeef
//	    expect: { ok: false, code: INTEGRITY_MISMATCH }
//	  - op: get_by_type
//	    block_type: BLOCKTYPEA
//	    expect: { count: 1 }
//	assertions:
//	  - type: store_count
//	    count: 1
//	  - type: name_resolves
//	    name: Test
//	    content: hello
//
// A submit step without a checksum gets the correct digest of its content.
//
// # Assertion Types
//
//   - store_count: the store holds exactly count records
//   - type_count: get_by_type(block_type) returns exactly count records
//   - name_resolves: get_by_name(name) finds a record, optionally checking
//     block_type and content
//   - name_absent: get_by_name(name) finds nothing
package harness
