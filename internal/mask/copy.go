package mask

import "go-mask-pipeline/internal/model"

// copyMap deep-copies a document tree. Only maps and slices are cloned;
// scalar values are immutable and shared.
func copyMap(doc model.Document) model.Document {
	out := make(model.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, nested := range val {
			out[k] = copyValue(nested)
		}
		return out
	case model.Document:
		out := make(map[string]interface{}, len(val))
		for k, nested := range val {
			out[k] = copyValue(nested)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, nested := range val {
			out[i] = copyValue(nested)
		}
		return out
	default:
		return v
	}
}
