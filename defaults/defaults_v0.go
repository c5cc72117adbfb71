package defaults

import (
	"fmt"
	"strconv"

	"github.com/sahib/config"
)

// octalValidator makes sure a string parses as an octal file mode.
func octalValidator(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("not a string: %v", val)
	}

	_, err := strconv.ParseUint(s, 8, 32)
	return err
}

// DefaultsV0 is the default config validation for ecgofs
var DefaultsV0 = config.DefaultMapping{
	"cache": config.DefaultMapping{
		"root": config.DefaultEntry{
			Default:      "",
			NeedsRestart: false,
			Docs:         "Where to stage retrieved files. Falls back to $EC_CACHE and $SCRATCH if empty.",
		},
		"permissions": config.DefaultEntry{
			Default:      "3777",
			NeedsRestart: false,
			Docs:         "Octal mode for staged files and directories. The default keeps group sharing intact.",
			Validator:    octalValidator,
		},
		"touch": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Bump the mtime of staged files on access so cache scrubbers leave them alone.",
		},
		"override": config.DefaultEntry{
			Default:      false,
			NeedsRestart: false,
			Docs:         "Always retrieve from the archive, even when a staged copy exists.",
		},
	},
	"fetch": config.DefaultMapping{
		"delay": config.DefaultEntry{
			Default:      2,
			NeedsRestart: false,
			Docs:         "Seconds to wait for more open calls before firing a retrieval batch. At least one.",
			Validator:    config.IntRangeValidator(1, 3600),
		},
		"list_rate": config.DefaultEntry{
			Default:      0.0,
			NeedsRestart: false,
			Docs:         "Maximum listing commands per second. Zero means unlimited.",
			Validator:    config.FloatRangeValidator(0, 1000),
		},
	},
	"data": config.DefaultMapping{
		"backend": config.DefaultEntry{
			Default:      "cli",
			NeedsRestart: true,
			Docs:         "What backend answers archive requests.",
			Validator: config.EnumValidator(
				"cli", "mock",
			),
		},
		"cli": config.DefaultMapping{
			"els_binary": config.DefaultEntry{
				Default:      "els",
				NeedsRestart: false,
				Docs:         "Name or path of the listing tool.",
			},
			"ecp_binary": config.DefaultEntry{
				Default:      "ecp",
				NeedsRestart: false,
				Docs:         "Name or path of the copy tool.",
			},
		},
		"mock": config.DefaultMapping{
			"root": config.DefaultEntry{
				Default:      "",
				NeedsRestart: false,
				Docs:         "Local directory the mock backend serves as archive.",
			},
		},
	},
	"lscache": config.DefaultMapping{
		"backend": config.DefaultEntry{
			Default:      "memory",
			NeedsRestart: true,
			Docs:         "Where directory listings are remembered. badger survives restarts.",
			Validator: config.EnumValidator(
				"memory", "badger",
			),
		},
	},
	"gateway": config.DefaultMapping{
		"addr": config.DefaultEntry{
			Default:      "localhost:6333",
			NeedsRestart: false,
			Docs:         "Address the read-only http gateway binds to.",
		},
	},
}
