package listing

import (
	"time"

	"github.com/sdejongh/dirlisting/pkg/search"
)

// Settings holds the behaviour switches and policy constants of a listing
type Settings struct {
	// UseADL matches auto-download rules after a full list is loaded
	UseADL bool

	// DupesInFilelist classifies loaded items against the share and queue
	DupesInFilelist bool

	// SkipZeroByte treats directories with only empty files as empty
	SkipZeroByte bool

	// SkipSubtractKiB removes small leftovers after a diff (0 disables)
	SkipSubtractKiB int64

	// LanMode accepts files without a content hash
	LanMode bool

	// Nick is the local user's nick, shown for own listings
	Nick string

	// RequireAck makes the worker wait for Acknowledge after loading_started
	RequireAck bool

	// AckPollInterval is how often the worker checks for the acknowledgement
	AckPollInterval time.Duration

	// FilterDebounce delays refiltering until requests stop arriving
	FilterDebounce time.Duration

	// NoResultTimeout ends a network search that received nothing
	NoResultTimeout time.Duration

	// IdleTimeout ends a network search once results stop arriving
	IdleTimeout time.Duration

	// LocalResultCap limits results of a search in the tree
	LocalResultCap int

	// ShareResultCap limits results of a search in the own share
	ShareResultCap int
}

// DefaultSettings returns the default listing settings
func DefaultSettings() Settings {
	return Settings{
		UseADL:          false,
		DupesInFilelist: true,
		SkipZeroByte:    false,
		SkipSubtractKiB: 0,
		AckPollInterval: 50 * time.Millisecond,
		FilterDebounce:  500 * time.Millisecond,
		NoResultTimeout: search.DefaultNoResultTimeout,
		IdleTimeout:     search.DefaultIdleTimeout,
		LocalResultCap:  100,
		ShareResultCap:  50,
	}
}

// withDefaults fills unset policy values
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.AckPollInterval <= 0 {
		s.AckPollInterval = d.AckPollInterval
	}
	if s.FilterDebounce <= 0 {
		s.FilterDebounce = d.FilterDebounce
	}
	if s.NoResultTimeout <= 0 {
		s.NoResultTimeout = d.NoResultTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = d.IdleTimeout
	}
	if s.LocalResultCap <= 0 {
		s.LocalResultCap = d.LocalResultCap
	}
	if s.ShareResultCap <= 0 {
		s.ShareResultCap = d.ShareResultCap
	}
	return s
}
