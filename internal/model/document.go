package model

// Document is a schema-agnostic map for any collection record
type Document map[string]interface{}

// KeyField is the primary-key field every source document carries.
// Its value doubles as the cursor-resume token in checkpoints.
const KeyField = "_id"

// Key returns the document primary key, or nil when absent.
func (d Document) Key() interface{} {
	return d[KeyField]
}
