package vectorstore

import (
	"fmt"

	"github.com/google/uuid"
)

// pointNamespace seeds deterministic point IDs. Changing it orphans every
// previously written point.
var pointNamespace = uuid.MustParse("f1a3d9e4-8c52-4b6f-9d07-2ab1c0de5a31")

// PointID derives the Qdrant point identity for a chunk. It is a UUIDv5 of
// "{doc_id}_{seq}", so the same chunk position of the same document always
// maps to the same point and re-ingestion overwrites in place.
func PointID(docID string, seq int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s_%d", docID, seq))).String()
}
