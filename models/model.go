package models

// ModelKind is a coarse capability tag used to filter discovered models.
type ModelKind string

const (
	ModelKindChat      ModelKind = "chat"
	ModelKindEmbedding ModelKind = "embedding"
)

// ModelDescriptor identifies one model exposed by the Flow service.
type ModelDescriptor struct {
	Name string    `json:"name"`
	Kind ModelKind `json:"type"`
}

// IsChat reports whether the model can serve chat completions.
func (d ModelDescriptor) IsChat() bool {
	return d.Kind == ModelKindChat
}
