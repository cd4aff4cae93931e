// Package storage provides the blob store implementations (local
// filesystem and S3), the redis-backed session store, and the scheduled
// janitor that removes orphaned blobs. The SQL store lives in the
// postgres subpackage.
package storage
