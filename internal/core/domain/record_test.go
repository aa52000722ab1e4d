package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func testFrame() *Frame {
	return &Frame{
		Transform: Mat4{Columns: [4]Vec4{
			{X: 1, Y: 0, Z: 0, W: 0},
			{X: 0, Y: 1, Z: 0, W: 0},
			{X: 0.5, Y: -0.25, Z: 1, W: 0},
			{X: 1.5, Y: -2, Z: 3.25, W: 1},
		}},
		Intrinsics: NewIntrinsics(1445.5, 1446.25, 960.5, 720.75),
	}
}

func TestRecordFromFrame_Legacy(t *testing.T) {
	rec := RecordFromFrame("20240101120000.jpg", testFrame(), OrientationLegacy)

	if rec.FileName != "20240101120000.jpg" {
		t.Errorf("FileName = %q", rec.FileName)
	}
	if rec.Position != [3]float32{1.5, -2, 3.25} {
		t.Errorf("Position = %v, want translation column", rec.Position)
	}
	if rec.Orientation != [4]float32{-0.5, 0.25, -1, 0} {
		t.Errorf("Orientation = %v, want negated third column plus its w", rec.Orientation)
	}
	if rec.FocalLength != [2]float32{1445.5, 1446.25} {
		t.Errorf("FocalLength = %v", rec.FocalLength)
	}
	if rec.PrincipalPoint != [2]float32{960.5, 720.75} {
		t.Errorf("PrincipalPoint = %v", rec.PrincipalPoint)
	}
}

func TestRecordFromFrame_LegacyCarriesHomogeneousWeight(t *testing.T) {
	f := testFrame()
	f.Transform.Columns[2].W = 0.125

	rec := RecordFromFrame("a.jpg", f, OrientationLegacy)
	if rec.Orientation[3] != 0.125 {
		t.Errorf("Orientation[3] = %v, want 0.125", rec.Orientation[3])
	}
}

func TestRecordFromFrame_Quaternion(t *testing.T) {
	tests := []struct {
		name      string
		transform Mat4
		want      [4]float32
	}{
		{
			name:      "identity",
			transform: IdentityMat4(),
			want:      [4]float32{0, 0, 0, 1},
		},
		{
			name: "90 degrees about Y",
			transform: Mat4{Columns: [4]Vec4{
				{X: 0, Y: 0, Z: -1},
				{X: 0, Y: 1, Z: 0},
				{X: 1, Y: 0, Z: 0},
				{W: 1},
			}},
			want: [4]float32{0, float32(math.Sqrt2 / 2), 0, float32(math.Sqrt2 / 2)},
		},
		{
			name: "180 degrees about X",
			transform: Mat4{Columns: [4]Vec4{
				{X: 1},
				{Y: -1},
				{Z: -1},
				{W: 1},
			}},
			want: [4]float32{1, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frame{Transform: tt.transform}
			got := RecordFromFrame("a.jpg", f, OrientationQuaternion).Orientation
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Fatalf("Orientation = %v, want %v", got, tt.want)
				}
			}
			var norm float64
			for _, v := range got {
				norm += float64(v) * float64(v)
			}
			if math.Abs(norm-1) > 1e-6 {
				t.Errorf("quaternion norm^2 = %v, want 1", norm)
			}
		})
	}
}

func TestSnapshotRecord_JSONSchema(t *testing.T) {
	rec := RecordFromFrame("20240101120000.jpg", testFrame(), OrientationLegacy)

	data, err := json.Marshal([]SnapshotRecord{rec})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `[{"fileName":"20240101120000.jpg","position":[1.5,-2,3.25],` +
		`"orientation":[-0.5,0.25,-1,0],"focalLength":[1445.5,1446.25],` +
		`"principalPoint":[960.5,720.75]}]`
	if string(data) != want {
		t.Errorf("json = %s\nwant   %s", data, want)
	}
}

func TestParseOrientationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OrientationMode
		wantErr bool
	}{
		{"", OrientationLegacy, false},
		{"legacy", OrientationLegacy, false},
		{" Quaternion ", OrientationQuaternion, false},
		{"euler", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOrientationMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrientationMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrientationMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateSessionName(t *testing.T) {
	valid := []string{"living_room", "a", "Kitchen 2", "scan-2024.01.01"}
	for _, name := range valid {
		if err := ValidateSessionName(name); err != nil {
			t.Errorf("ValidateSessionName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "x\x00y", strings.Repeat("n", MaxSessionNameLength+1)}
	for _, name := range invalid {
		err := ValidateSessionName(name)
		if !errors.Is(err, ErrInvalidSessionName) {
			t.Errorf("ValidateSessionName(%q) = %v, want ErrInvalidSessionName", name, err)
		}
	}
}

func TestMatFromSlice(t *testing.T) {
	m, ok := Mat4FromSlice([]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 4, 5, 6, 1})
	if !ok {
		t.Fatal("Mat4FromSlice() should accept 16 values")
	}
	if m.Columns[3] != (Vec4{X: 4, Y: 5, Z: 6, W: 1}) {
		t.Errorf("translation column = %+v", m.Columns[3])
	}
	if _, ok := Mat4FromSlice(make([]float32, 12)); ok {
		t.Error("Mat4FromSlice() should reject 12 values")
	}

	k, ok := Mat3FromSlice([]float32{500, 0, 0, 0, 510, 0, 320, 240, 1})
	if !ok {
		t.Fatal("Mat3FromSlice() should accept 9 values")
	}
	if k != NewIntrinsics(500, 510, 320, 240) {
		t.Errorf("Mat3FromSlice() = %+v", k)
	}
}

func TestTrackingState_Describe(t *testing.T) {
	tests := []struct {
		state TrackingState
		want  string
	}{
		{TrackingState{}, ""},
		{TrackingState{Status: TrackingNormal}, ""},
		{TrackingState{Status: TrackingNotAvailable}, "Tracking: Not available!"},
		{TrackingState{Status: TrackingLimited, Reason: ReasonExcessiveMotion}, "Tracking: Limited due to excessive motion!"},
		{TrackingState{Status: TrackingLimited, Reason: ReasonInsufficientFeatures}, "Tracking: Limited due to insufficient features!"},
		{TrackingState{Status: TrackingLimited, Reason: ReasonInitializing}, "Tracking: Initializing..."},
		{TrackingState{Status: TrackingLimited, Reason: ReasonRelocalizing}, "Tracking: Relocalizing..."},
		{TrackingState{Status: TrackingLimited}, "Tracking: Unknown..."},
	}

	for _, tt := range tests {
		if got := tt.state.Describe(); got != tt.want {
			t.Errorf("Describe(%+v) = %q, want %q", tt.state, got, tt.want)
		}
		if tt.state.IsNormal() != (tt.want == "") {
			t.Errorf("IsNormal(%+v) = %v", tt.state, tt.state.IsNormal())
		}
	}
}
