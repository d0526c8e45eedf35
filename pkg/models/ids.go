package models

// IDType says which catalog(s) a game's identifying ids come from.
type IDType string

const (
	IDTypeBgm     IDType = "bgm"
	IDTypeVndb    IDType = "vndb"
	IDTypeYmgal   IDType = "ymgal"
	IDTypeMixed   IDType = "mixed"
	IDTypeCustom  IDType = "custom"
	IDTypeUnknown IDType = "unknown"
)

// IDSet holds at most one identifier per catalog source.
// An empty string means "no id for that source".
type IDSet struct {
	BgmID   string `json:"bgm_id,omitempty"`
	VndbID  string `json:"vndb_id,omitempty"`
	YmgalID string `json:"ymgal_id,omitempty"`
}

func (s IDSet) Count() int {
	n := 0
	if s.BgmID != "" {
		n++
	}
	if s.VndbID != "" {
		n++
	}
	if s.YmgalID != "" {
		n++
	}
	return n
}

func (s IDSet) Empty() bool { return s.Count() == 0 }

// Type derives the id_type discriminator from which ids are present:
// two or more ids is "mixed", exactly one is that source, none is "unknown".
// Callers that track manual entries map "unknown" to "custom" themselves.
func (s IDSet) Type() IDType {
	switch s.Count() {
	case 0:
		return IDTypeUnknown
	case 1:
		if s.BgmID != "" {
			return IDTypeBgm
		}
		if s.VndbID != "" {
			return IDTypeVndb
		}
		return IDTypeYmgal
	default:
		return IDTypeMixed
	}
}
