// Package simulate drives a running Artemis server with generated game
// sessions and checks that the resulting profiles add up.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Users           int           // Number of distinct users
	SessionsPerUser int           // Sessions generated for each user
	Workers         int           // Number of concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	Settle          time.Duration // How long to wait for ingestion to catch up
	PollInterval    time.Duration // Delay between profile checks while settling
	OutputFile      string        // Optional JSON dump of the generated submissions
	Seed            uint64        // Seed for the score generator; 0 picks one
	Verbose         bool          // Log every failed request
}

// Stats holds run statistics.
type Stats struct {
	Generated       int
	Submitted       int
	Accepted        int
	Duplicate       int
	Failed          int
	ProfilesChecked int
	Mismatched      int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

func (c *Config) withDefaults() {
	if c.Users <= 0 {
		c.Users = 1
	}
	if c.SessionsPerUser <= 0 {
		c.SessionsPerUser = 1
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
}
