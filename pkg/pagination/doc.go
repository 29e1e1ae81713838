// Package pagination implements forward-only cursor pagination over a
// docstore collection.
//
// A page is fetched with one extra record to detect whether more
// results exist; the continuation cursor carries the last returned
// record's sort-key values and resumes strictly after them. Cursors
// are opaque URL-safe tokens owned by the client between requests.
package pagination
