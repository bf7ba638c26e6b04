package domain

// SearchStatus is the device search state machine.
type SearchStatus string

const (
	SearchNone       SearchStatus = "no_search"
	SearchAllDevices SearchStatus = "all_devices"
	SearchOnlyPolar  SearchStatus = "only_polar"
)

// SearchState accumulates discovered devices while a search runs. The
// found set survives stopping the search so the UI keeps showing it,
// and is cleared only when a new search starts.
type SearchState struct {
	Status SearchStatus
	Found  map[string]Info
}

func NoSearch() SearchState {
	return SearchState{Status: SearchNone}
}

func (s SearchState) WithDevice(info Info) SearchState {
	found := make(map[string]Info, len(s.Found)+1)
	for id, d := range s.Found {
		found[id] = d
	}
	found[info.DeviceID] = info
	return SearchState{Status: s.Status, Found: found}
}

func (s SearchState) Stopped() SearchState {
	return SearchState{Status: SearchNone, Found: s.Found}
}
