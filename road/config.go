package road

import "fmt"

const (
	DefaultMinColumns      = 20
	DefaultMinTrackColumns = 20
)

type Config struct {
	// Minimum number of columns shown for the BPPC and WL roads.
	MinColumns int
	// Minimum number of cells shown for each trend track.
	MinTrackColumns int
}

func DefaultConfig() Config {
	return Config{
		MinColumns:      DefaultMinColumns,
		MinTrackColumns: DefaultMinTrackColumns,
	}
}

func (c Config) validate() error {
	if c.MinColumns <= 0 {
		return fmt.Errorf("MinColumns must be > 0")
	}
	if c.MinTrackColumns <= 0 {
		return fmt.Errorf("MinTrackColumns must be > 0")
	}
	return nil
}
