// Package coach demonstrates explicit dependency wiring: named
// implementations of one interface, picked by qualifier and provided either
// as a shared instance or freshly per resolution.
package coach

import (
	"log/slog"
	"sync/atomic"
)

// instances numbers every coach ever built, so each one is a distinct value
// even for otherwise empty types.
var instances atomic.Uint64

type Coach interface {
	DailyWorkout() string
}

type CricketCoach struct{ instance uint64 }

func NewCricketCoach() *CricketCoach {
	c := &CricketCoach{instance: instances.Add(1)}
	slog.Debug("constructing coach", slog.String("coach", "CricketCoach"), slog.Uint64("instance", c.instance))
	return c
}

func (*CricketCoach) DailyWorkout() string {
	return "Practice fast bowling for 15 minutes"
}

type BaseballCoach struct{ instance uint64 }

func NewBaseballCoach() *BaseballCoach {
	c := &BaseballCoach{instance: instances.Add(1)}
	slog.Debug("constructing coach", slog.String("coach", "BaseballCoach"), slog.Uint64("instance", c.instance))
	return c
}

func (*BaseballCoach) DailyWorkout() string {
	return "Spend 30 minutes in batting practice"
}

type TrackCoach struct{ instance uint64 }

func NewTrackCoach() *TrackCoach {
	c := &TrackCoach{instance: instances.Add(1)}
	slog.Debug("constructing coach", slog.String("coach", "TrackCoach"), slog.Uint64("instance", c.instance))
	return c
}

func (*TrackCoach) DailyWorkout() string {
	return "Run a hard 5k!"
}

type TennisCoach struct{ instance uint64 }

func NewTennisCoach() *TennisCoach {
	c := &TennisCoach{instance: instances.Add(1)}
	slog.Debug("constructing coach", slog.String("coach", "TennisCoach"), slog.Uint64("instance", c.instance))
	return c
}

func (*TennisCoach) DailyWorkout() string {
	return "Practice your backhand volley"
}
