package domain

import "strings"

// SourceKind tags which physical sensor produced a heart-rate sample.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceInternal
	SourceExternal
)

// Source is a closed tag-with-payload type: External carries the id of
// the device that produced the sample, the other kinds carry nothing.
type Source struct {
	Kind     SourceKind
	DeviceID string
}

const (
	sourceUnknownString  = "[UNKNOWN]"
	sourceInternalString = "[INTERNAL]"
	sourceExternalPrefix = "[EXTERNAL] "
)

func InternalSource() Source {
	return Source{Kind: SourceInternal}
}

func ExternalSource(deviceID string) Source {
	return Source{Kind: SourceExternal, DeviceID: deviceID}
}

// String is the canonical persisted form; ParseSource inverts it.
func (s Source) String() string {
	switch s.Kind {
	case SourceInternal:
		return sourceInternalString
	case SourceExternal:
		return sourceExternalPrefix + s.DeviceID
	default:
		return sourceUnknownString
	}
}

func ParseSource(raw string) Source {
	switch {
	case raw == sourceInternalString:
		return Source{Kind: SourceInternal}
	case strings.HasPrefix(raw, sourceExternalPrefix):
		return Source{Kind: SourceExternal, DeviceID: strings.TrimPrefix(raw, sourceExternalPrefix)}
	default:
		return Source{Kind: SourceUnknown}
	}
}
