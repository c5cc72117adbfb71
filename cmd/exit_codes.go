package cmd

const (
	// Success is the same as EXIT_SUCCESS in C
	Success = iota

	// BadArgs passed to cli; not our fault.
	BadArgs

	// BadURL means the user passed something that is no archive url.
	BadURL

	// BadConfig means the config could not be loaded or saved.
	BadConfig

	// UnknownError is an uncategorized error, probably our fault.
	UnknownError
)
