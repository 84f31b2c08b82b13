package port

// SpaceMonitor reports free space for the filesystem containing a path.
type SpaceMonitor interface {
	// FreePercent returns free space as a whole percentage (0-100) of
	// the filesystem that contains path.
	FreePercent(path string) (int, error)
}
