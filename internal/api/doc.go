// Package api serves ingestion and query over HTTP.
//
// Routes:
//
//	POST      /dataserver/pushdata                       submit an envelope, returns true|false
//	GET       /dataserver/data/{blockType}               list records of a type, 404 when none
//	GET       /dataserver/block/{name}                   most recent record with a name
//	PUT|PATCH /dataserver/update/{name}/{newBlockType}   retype a record, returns true|false
//	GET       /health                                    liveness
//
// Request bodies are JSON unless Content-Type is application/cbor, and may
// be gzip or zstd compressed. Responses are JSON unless the client sends
// Accept: application/cbor.
package api
