package compress

// Module selects a behavior variant of the relay. The set is closed;
// unknown or empty module strings resolve to the chitchat defaults.
type Module string

const (
	ModuleChitchat   Module = "chitchat"
	ModuleSnackFeed  Module = "snack-feed"
	ModuleSyzygyFeed Module = "syzygy-feed"
	ModuleRpRoom     Module = "rp-room"
)

// ParseModule maps an inbound module string to a Module.
func ParseModule(s string) Module {
	switch Module(s) {
	case ModuleSnackFeed, ModuleSyzygyFeed, ModuleRpRoom:
		return Module(s)
	default:
		return ModuleChitchat
	}
}

// ModuleSettings is the per-module compression and formatting profile.
type ModuleSettings struct {
	// KeepRecent is the number of most-recent turns kept verbatim.
	KeepRecent int
	// KeepRecentFloor and KeepRecentCeil bound KeepRecent for modules
	// with a shrink loop.
	KeepRecentFloor int
	KeepRecentCeil  int
	// ShrinkToFit lets the assembler shrink the recent window down to
	// KeepRecentFloor when the assembled output still exceeds the budget.
	ShrinkToFit bool
	// SpeakerTags prefixes each formatted turn with its role.
	SpeakerTags bool
	// InjectMemories includes the stored-memory block in the outbound
	// system context.
	InjectMemories bool
}

// moduleSettings holds the profile for each module. Feed modules run
// token-scarce: a tighter keep window with a shrink loop. Chitchat and
// rp-room are token-generous.
var moduleSettings = map[Module]ModuleSettings{
	ModuleChitchat: {
		KeepRecent:      20,
		KeepRecentFloor: 20,
		KeepRecentCeil:  20,
		InjectMemories:  true,
	},
	ModuleSnackFeed: {
		KeepRecent:      10,
		KeepRecentFloor: 5,
		KeepRecentCeil:  20,
		ShrinkToFit:     true,
		SpeakerTags:     true,
	},
	ModuleSyzygyFeed: {
		KeepRecent:      10,
		KeepRecentFloor: 5,
		KeepRecentCeil:  20,
		ShrinkToFit:     true,
		SpeakerTags:     true,
	},
	ModuleRpRoom: {
		KeepRecent:      20,
		KeepRecentFloor: 20,
		KeepRecentCeil:  20,
		SpeakerTags:     true,
		InjectMemories:  true,
	},
}

// SettingsFor returns the profile for a module, with KeepRecent clamped
// into its floor/ceiling range.
func SettingsFor(m Module) ModuleSettings {
	s, ok := moduleSettings[m]
	if !ok {
		s = moduleSettings[ModuleChitchat]
	}
	if s.KeepRecent < s.KeepRecentFloor {
		s.KeepRecent = s.KeepRecentFloor
	}
	if s.KeepRecent > s.KeepRecentCeil {
		s.KeepRecent = s.KeepRecentCeil
	}
	return s
}
