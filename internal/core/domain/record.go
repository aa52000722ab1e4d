package domain

import (
	"fmt"
	"strings"
)

// MaxSessionNameLength bounds session names to a single path component.
const MaxSessionNameLength = 255

// SnapshotRecord is the metadata persisted for one captured image.
// Field names and order match the info.json schema.
type SnapshotRecord struct {
	FileName       string     `json:"fileName"`
	Position       [3]float32 `json:"position"`
	Orientation    [4]float32 `json:"orientation"`
	FocalLength    [2]float32 `json:"focalLength"`
	PrincipalPoint [2]float32 `json:"principalPoint"`
}

// OrientationMode selects how the orientation field is derived.
type OrientationMode string

const (
	// OrientationLegacy emits the negated forward axis plus the homogeneous
	// weight of the transform's third column. Saved sessions use this.
	OrientationLegacy OrientationMode = "legacy"

	// OrientationQuaternion emits the normalized rotation quaternion [x y z w].
	OrientationQuaternion OrientationMode = "quaternion"
)

// ParseOrientationMode parses a mode name. Empty selects legacy.
func ParseOrientationMode(s string) (OrientationMode, error) {
	switch OrientationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrientationLegacy:
		return OrientationLegacy, nil
	case OrientationQuaternion:
		return OrientationQuaternion, nil
	default:
		return "", fmt.Errorf("unknown orientation mode %q", s)
	}
}

// RecordFromFrame extracts pose and intrinsics from f into a record bound to
// fileName.
func RecordFromFrame(fileName string, f *Frame, mode OrientationMode) SnapshotRecord {
	t := f.Transform
	pos := t.Columns[3]
	fwd := t.Columns[2]
	k := f.Intrinsics

	rec := SnapshotRecord{
		FileName:       fileName,
		Position:       [3]float32{pos.X, pos.Y, pos.Z},
		FocalLength:    [2]float32{k.Columns[0].X, k.Columns[1].Y},
		PrincipalPoint: [2]float32{k.Columns[2].X, k.Columns[2].Y},
	}
	if mode == OrientationQuaternion {
		rec.Orientation = t.RotationQuaternion()
	} else {
		rec.Orientation = [4]float32{-fwd.X, -fwd.Y, -fwd.Z, fwd.W}
	}
	return rec
}

// ValidateSessionName checks that name is usable as a single folder name
// under the document root.
func ValidateSessionName(name string) error {
	switch {
	case name == "":
		return ErrInvalidSessionName.WithDetails("name is required")
	case len(name) > MaxSessionNameLength:
		return ErrInvalidSessionName.WithDetails(fmt.Sprintf("name exceeds %d bytes", MaxSessionNameLength))
	case name == "." || name == "..":
		return ErrInvalidSessionName.WithDetails("name must not be a relative path element")
	case strings.ContainsAny(name, `/\`):
		return ErrInvalidSessionName.WithDetails("name must not contain path separators")
	case strings.ContainsRune(name, 0):
		return ErrInvalidSessionName.WithDetails("name must not contain NUL")
	}
	return nil
}
