// Package pack implements the chunked pack file format: a writer that
// dedups object payloads by hash, a random-access reader that resolves any
// chunk in O(1) via the trailing manifest, and a verify pass that recomputes
// every checksum the format carries.
package pack

import "crypto/sha256"

const sha256Size = sha256.Size

const packVersion uint32 = 1

var packMagic = [4]byte{'G', 'L', 'P', 'K'}

// headerBodyLen is the size, in bytes, of the fixed header fields
// (chunk_count u32; manifest_offset u64) written after header_length.
const headerBodyLen = 12

// fixedPrefixLen is magic(4) + version(4) + header_length(4) + header(12).
const fixedPrefixLen = 4 + 4 + 4 + headerBodyLen

// chunkEntryOverhead is hash(32) + codec(1) + compressed_size(4) + crc32(4),
// the bytes surrounding a chunk's compressed payload.
const chunkEntryOverhead = sha256Size + 1 + 4 + 4

const trailerLen = 4
