package models

import (
	"fmt"
	"time"
)

// RecordingType identifies the trigger that produced a recording.
type RecordingType string

const (
	TypeNormal         RecordingType = "normal"
	TypeManual         RecordingType = "manual"
	TypeParking        RecordingType = "parking"
	TypeImpact         RecordingType = "impact"
	TypeParkingImpact  RecordingType = "parking-impact"
	TypeOverspeed      RecordingType = "overspeed"
	TypeAcceleration   RecordingType = "acceleration"
	TypeBraking        RecordingType = "braking"
	TypeCornering      RecordingType = "cornering"
	TypeGeofenceEnter  RecordingType = "geofence-enter"
	TypeGeofenceExit   RecordingType = "geofence-exit"
	TypeGeofencePass   RecordingType = "geofence-pass"
	TypeDrowsiness     RecordingType = "drowsiness"
	TypeDistraction    RecordingType = "distraction"
	TypePhoneUse       RecordingType = "phone-use"
	TypeFaceUndetected RecordingType = "face-undetected"
)

// RecordingClass partitions recording types for download prioritization.
type RecordingClass int

const (
	ClassManual RecordingClass = iota
	ClassEvent
	ClassNormal
	ClassParking
)

// Class maps a recording type to its priority class. All event sub-causes,
// including impacts detected while parked, count as events.
func (t RecordingType) Class() RecordingClass {
	switch t {
	case TypeManual:
		return ClassManual
	case TypeNormal:
		return ClassNormal
	case TypeParking:
		return ClassParking
	default:
		return ClassEvent
	}
}

// Direction identifies which camera captured a file.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionFront    Direction = "front"
	DirectionRear     Direction = "rear"
	DirectionInterior Direction = "interior"
	DirectionOptional Direction = "optional"
)

// UploadFlag marks recordings produced by the cloud upload path.
type UploadFlag string

const (
	UploadNone      UploadFlag = ""
	UploadLive      UploadFlag = "live"
	UploadSubstream UploadFlag = "substream"
)

// FileKind identifies the physical artifact a file holds.
type FileKind string

const (
	KindVideo         FileKind = "video"
	KindThumbnail     FileKind = "thumbnail"
	KindAccelerometer FileKind = "accelerometer"
	KindGPS           FileKind = "gps"
)

// kindRank orders file kinds for deterministic tie-breaking.
func (k FileKind) rank() int {
	switch k {
	case KindVideo:
		return 0
	case KindThumbnail:
		return 1
	case KindAccelerometer:
		return 2
	default:
		return 3
	}
}

// RecordingKey identifies one logical recording event. Front and rear videos
// of the same event share a key: the accelerometer and GPS sidecars belong to
// the event, not to a camera, so direction lives on the FileEntry instead.
type RecordingKey struct {
	Timestamp time.Time
	Type      RecordingType
	Upload    UploadFlag
}

// Stem returns the shared filename prefix for the recording event,
// e.g. "20181029_131513".
func (k RecordingKey) Stem() string {
	return k.Timestamp.Format("20060102_150405")
}

func (k RecordingKey) String() string {
	return fmt.Sprintf("%s/%s", k.Stem(), k.Type)
}

// Date returns the timestamp truncated to its calendar date, the granularity
// at which retention is applied.
func (k RecordingKey) Date() time.Time {
	y, m, d := k.Timestamp.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, k.Timestamp.Location())
}

// SizeUnknown marks entries whose byte size is not reported by the device
// listing (derived sidecar files).
const SizeUnknown int64 = -1

// FileEntry is one physical file belonging to a recording event.
type FileEntry struct {
	Key       RecordingKey
	Kind      FileKind
	Direction Direction

	// Name is the canonical filename, never the temporary dot-prefixed form.
	Name string

	// Size is the byte size: the listing-reported size for remote entries,
	// the on-disk size for local ones, or SizeUnknown.
	Size int64

	// Location is the path relative to the destination root. For partial
	// entries it points at the temporary file.
	Location string

	// Partial marks a local in-progress download eligible for resumption.
	Partial bool
}

// SizeKnown reports whether the entry carries an authoritative byte size.
func (f FileEntry) SizeKnown() bool {
	return f.Size >= 0
}

// Compare orders entries by recording key, then file kind, then direction.
// It is the tie-breaker underneath every priority policy, guaranteeing
// reproducible plans across runs.
func (f FileEntry) Compare(other FileEntry) int {
	if c := f.Key.Timestamp.Compare(other.Key.Timestamp); c != 0 {
		return c
	}
	if f.Key.Type != other.Key.Type {
		if f.Key.Type < other.Key.Type {
			return -1
		}
		return 1
	}
	if f.Key.Upload != other.Key.Upload {
		if f.Key.Upload < other.Key.Upload {
			return -1
		}
		return 1
	}
	if r1, r2 := f.Kind.rank(), other.Kind.rank(); r1 != r2 {
		return r1 - r2
	}
	if f.Direction != other.Direction {
		if f.Direction < other.Direction {
			return -1
		}
		return 1
	}
	return 0
}

// Priority selects the download ordering policy.
type Priority string

const (
	PriorityDate  Priority = "date"
	PriorityRDate Priority = "rdate"
	PriorityType  Priority = "type"
)

// ParsePriority validates a priority policy name.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityDate, PriorityRDate, PriorityType:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown download priority: %q", s)
}
