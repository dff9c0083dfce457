package block

// Mode is a block prediction mode.
type Mode uint8

// Intra modes are collapsed to a single value; only inter modes matter to
// motion vector derivation.
const (
	ModeIntra Mode = iota
	NearestMV
	NearMV
	GlobalMV
	NewMV
	NearestNearestMV
	NearNearMV
	NearestNewMV
	NewNearestMV
	NearNewMV
	NewNearMV
	GlobalGlobalMV
	NewNewMV
	ModesAll
)

var modeNames = [ModesAll]string{
	"INTRA", "NEARESTMV", "NEARMV", "GLOBALMV", "NEWMV",
	"NEAREST_NEARESTMV", "NEAR_NEARMV", "NEAREST_NEWMV", "NEW_NEARESTMV",
	"NEAR_NEWMV", "NEW_NEARMV", "GLOBAL_GLOBALMV", "NEW_NEWMV",
}

// HasNewMV reports whether m codes at least one explicit vector.
func (m Mode) HasNewMV() bool {
	switch m {
	case NewMV, NearestNewMV, NewNearestMV, NearNewMV, NewNearMV, NewNewMV:
		return true
	}
	return false
}

// IsGlobal reports whether m takes its vectors from the global motion model.
func (m Mode) IsGlobal() bool { return m == GlobalMV || m == GlobalGlobalMV }

func (m Mode) String() string {
	if m < ModesAll {
		return modeNames[m]
	}
	return "invalid"
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, bool) {
	for m := Mode(0); m < ModesAll; m++ {
		if modeNames[m] == name {
			return m, true
		}
	}
	return ModesAll, false
}
