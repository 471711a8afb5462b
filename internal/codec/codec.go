// Package codec parses and builds dashcam recording filenames.
//
// The grammar is fixed: YYYYMMDD_HHMMSS_<type>[<direction>][<upload>].<ext>
// with single-letter codes drawn from closed tables. Parsing is pure and
// table-driven so the full code surface can be tested exhaustively; an
// unknown code is a ParseError, never a panic.
package codec

import (
	"strings"
	"time"

	"github.com/TheMichaelB/dashsync/internal/models"
)

const stemLayout = "20060102_150405"

// typeCodes maps the filename type letter onto the recording type.
var typeCodes = map[byte]models.RecordingType{
	'N': models.TypeNormal,
	'M': models.TypeManual,
	'P': models.TypeParking,
	'E': models.TypeImpact,
	'I': models.TypeParkingImpact,
	'O': models.TypeOverspeed,
	'A': models.TypeAcceleration,
	'B': models.TypeBraking,
	'T': models.TypeCornering,
	'R': models.TypeGeofenceEnter,
	'X': models.TypeGeofenceExit,
	'G': models.TypeGeofencePass,
	'D': models.TypeDrowsiness,
	'L': models.TypeDistraction,
	'Y': models.TypePhoneUse,
	'F': models.TypeFaceUndetected,
}

// typeLetters is the reverse mapping, used when building sidecar names.
var typeLetters = func() map[models.RecordingType]byte {
	m := make(map[models.RecordingType]byte, len(typeCodes))
	for c, t := range typeCodes {
		m[t] = c
	}
	return m
}()

var directionCodes = map[byte]models.Direction{
	'F': models.DirectionFront,
	'R': models.DirectionRear,
	'I': models.DirectionInterior,
	'O': models.DirectionOptional,
}

var directionLetters = map[models.Direction]byte{
	models.DirectionFront:    'F',
	models.DirectionRear:     'R',
	models.DirectionInterior: 'I',
	models.DirectionOptional: 'O',
}

var uploadCodes = map[byte]models.UploadFlag{
	'L': models.UploadLive,
	'S': models.UploadSubstream,
}

var uploadLetters = map[models.UploadFlag]string{
	models.UploadNone:      "",
	models.UploadLive:      "L",
	models.UploadSubstream: "S",
}

var kindByExt = map[string]models.FileKind{
	"mp4": models.KindVideo,
	"thm": models.KindThumbnail,
	"3gf": models.KindAccelerometer,
	"gps": models.KindGPS,
}

var extByKind = map[models.FileKind]string{
	models.KindVideo:         "mp4",
	models.KindThumbnail:     "thm",
	models.KindAccelerometer: "3gf",
	models.KindGPS:           "gps",
}

func parseError(name, reason string) error {
	return &models.ParseError{Filename: name, Reason: reason}
}

// Parse decodes a canonical recording filename into a FileEntry with
// Size set to SizeUnknown. It is a total function: any malformed name
// yields a ParseError.
func Parse(name string) (models.FileEntry, error) {
	var entry models.FileEntry

	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return entry, parseError(name, "missing extension")
	}

	kind, ok := kindByExt[name[dot+1:]]
	if !ok {
		return entry, parseError(name, "unknown extension")
	}

	stem := name[:dot]
	if len(stem) < len(stemLayout)+2 || stem[len(stemLayout)] != '_' {
		return entry, parseError(name, "malformed timestamp")
	}

	ts, err := time.Parse(stemLayout, stem[:len(stemLayout)])
	if err != nil {
		return entry, parseError(name, "invalid timestamp")
	}

	// Codes after the timestamp: type, then optional direction and upload.
	codes := stem[len(stemLayout)+1:]

	recType, ok := typeCodes[codes[0]]
	if !ok {
		return entry, parseError(name, "unknown recording type code")
	}
	codes = codes[1:]

	direction := models.DirectionNone
	if len(codes) > 0 {
		if d, ok := directionCodes[codes[0]]; ok {
			direction = d
			codes = codes[1:]
		}
	}

	upload := models.UploadNone
	if len(codes) > 0 {
		if u, ok := uploadCodes[codes[0]]; ok {
			upload = u
			codes = codes[1:]
		}
	}

	if len(codes) > 0 {
		return entry, parseError(name, "trailing characters after codes")
	}

	// Accelerometer and GPS sidecars are per-event, not per-camera.
	if direction != models.DirectionNone &&
		(kind == models.KindAccelerometer || kind == models.KindGPS) {
		return entry, parseError(name, "direction code on sidecar file")
	}

	return models.FileEntry{
		Key: models.RecordingKey{
			Timestamp: ts,
			Type:      recType,
			Upload:    upload,
		},
		Kind:      kind,
		Direction: direction,
		Name:      name,
		Size:      models.SizeUnknown,
	}, nil
}

// FileName builds the canonical filename for a file of the given recording.
// Direction is ignored for accelerometer and GPS sidecars.
func FileName(key models.RecordingKey, direction models.Direction, kind models.FileKind) string {
	var b strings.Builder
	b.WriteString(key.Stem())
	b.WriteByte('_')
	b.WriteByte(typeLetters[key.Type])
	if direction != models.DirectionNone &&
		kind != models.KindAccelerometer && kind != models.KindGPS {
		b.WriteByte(directionLetters[direction])
	}
	b.WriteString(uploadLetters[key.Upload])
	b.WriteByte('.')
	b.WriteString(extByKind[kind])
	return b.String()
}

// Kin returns the sidecar files expected alongside a video: its thumbnail,
// the accelerometer trace, and (for normal, event and manual recordings) the
// GPS track. Parking recordings carry no GPS data.
func Kin(video models.FileEntry) []models.FileEntry {
	sidecar := func(kind models.FileKind, direction models.Direction) models.FileEntry {
		return models.FileEntry{
			Key:       video.Key,
			Kind:      kind,
			Direction: direction,
			Name:      FileName(video.Key, direction, kind),
			Size:      models.SizeUnknown,
		}
	}

	kin := []models.FileEntry{
		sidecar(models.KindThumbnail, video.Direction),
		sidecar(models.KindAccelerometer, models.DirectionNone),
	}

	if video.Key.Type.Class() != models.ClassParking {
		kin = append(kin, sidecar(models.KindGPS, models.DirectionNone))
	}

	return kin
}

// TempName returns the reserved in-progress name for a download target.
func TempName(name string) string {
	return "." + name
}

// IsTempName reports whether a directory entry is an in-progress download,
// and if so its eventual target name. Hidden files that are not dot-prefixed
// recording names (the lock file, editor droppings) do not qualify.
func IsTempName(name string) (string, bool) {
	if !strings.HasPrefix(name, ".") {
		return "", false
	}
	target := name[1:]
	if _, err := Parse(target); err != nil {
		return "", false
	}
	return target, true
}
