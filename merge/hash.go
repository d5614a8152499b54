package merge

import "github.com/OneOfOne/xxhash"

// hashSize is the prime-ish bucket count spec.md §3 calls for ("≈ 400
// buckets, prime-ish, sized at construction").
const hashSize = 401

func bucketFor(mergeKey string) int {
	return int(xxhash.ChecksumString64(mergeKey) % uint64(hashSize))
}
