package domain

// PlacementMethod determines how extracted files reach the installation tree
type PlacementMethod int

const (
	PlaceMove PlacementMethod = iota // Default: rename, copy only across filesystems
	PlaceCopy                        // Always copy, then remove the source
)

func (m PlacementMethod) String() string {
	switch m {
	case PlaceMove:
		return "move"
	case PlaceCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// ParsePlacementMethod converts a string to PlacementMethod
func ParsePlacementMethod(s string) PlacementMethod {
	switch s {
	case "copy":
		return PlaceCopy
	default:
		return PlaceMove
	}
}
