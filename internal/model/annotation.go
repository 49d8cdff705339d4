package model

import "fmt"

// AnnotationKind selects which user annotation is being written.
type AnnotationKind string

const (
	AnnotationTag  AnnotationKind = "tag"
	AnnotationNote AnnotationKind = "note"
)

// ParseAnnotationKind validates a kind received from a caller.
func ParseAnnotationKind(s string) (AnnotationKind, error) {
	switch AnnotationKind(s) {
	case AnnotationTag, AnnotationNote:
		return AnnotationKind(s), nil
	}
	return "", fmt.Errorf("unknown annotation kind %q", s)
}

// AnnotationRecord is the per-account map of instance id to tag and note.
// Records are treated as values: With returns a modified copy.
type AnnotationRecord struct {
	Tags  map[string]string `json:"tags"`
	Notes map[string]string `json:"notes"`
}

// NewAnnotationRecord returns an empty record with allocated maps.
func NewAnnotationRecord() AnnotationRecord {
	return AnnotationRecord{Tags: map[string]string{}, Notes: map[string]string{}}
}

// Tag returns the tag for instanceID, or nil.
func (r AnnotationRecord) Tag(instanceID string) *string {
	return lookupAnnotation(r.Tags, instanceID)
}

// Note returns the note for instanceID, or nil.
func (r AnnotationRecord) Note(instanceID string) *string {
	return lookupAnnotation(r.Notes, instanceID)
}

// Get returns the annotation of the given kind, or nil.
func (r AnnotationRecord) Get(instanceID string, kind AnnotationKind) *string {
	if kind == AnnotationTag {
		return r.Tag(instanceID)
	}
	return r.Note(instanceID)
}

// With returns a copy of r with the annotation set, or removed when value is
// nil or empty. Only the touched map is copied.
func (r AnnotationRecord) With(instanceID string, kind AnnotationKind, value *string) AnnotationRecord {
	out := r
	switch kind {
	case AnnotationTag:
		out.Tags = withAnnotation(r.Tags, instanceID, value)
	case AnnotationNote:
		out.Notes = withAnnotation(r.Notes, instanceID, value)
	}
	if out.Tags == nil {
		out.Tags = map[string]string{}
	}
	if out.Notes == nil {
		out.Notes = map[string]string{}
	}
	return out
}

func lookupAnnotation(m map[string]string, instanceID string) *string {
	if v, ok := m[instanceID]; ok && v != "" {
		return &v
	}
	return nil
}

func withAnnotation(m map[string]string, instanceID string, value *string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if value == nil || *value == "" {
		delete(out, instanceID)
	} else {
		out[instanceID] = *value
	}
	return out
}
