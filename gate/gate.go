// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package gate decides whether election results may be shown.
//
// Results are disclosed when an admin has made them visible, or once the
// scheduled release date has passed. Either condition alone is enough.
package gate

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/tally"
)

// Snapshot is a consistent read of every row one tabulation needs.
type Snapshot struct {
	Roles      []models.Role
	Candidates []models.Candidate
	Votes      []models.Vote
	Settings   models.Settings
}

// IsDisclosed reports whether results may be shown at now.
func IsDisclosed(settings models.Settings, now time.Time) bool {
	if settings.ResultsVisible {
		return true
	}
	release := settings.ResultsReleaseDate
	return release != nil && !now.Before(*release)
}

// DisclosedResults tabulates snap if its settings allow disclosure at now.
// When withheld it returns a zero Result and false; no partial aggregates
// are ever computed.
func DisclosedResults(snap Snapshot, now time.Time) (tally.Result, bool) {
	if !IsDisclosed(snap.Settings, now) {
		return tally.Result{}, false
	}
	return tally.Tabulate(snap.Roles, snap.Candidates, snap.Votes), true
}

// Response builds the public results payload for snap at now, along with any
// referential gaps found while tabulating. Withheld responses carry only the
// release date and a human readable countdown.
func Response(snap Snapshot, now time.Time) (models.ResultsResponse, []tally.Gap) {
	resp := models.ResultsResponse{ReleaseDate: snap.Settings.ResultsReleaseDate}

	result, ok := DisclosedResults(snap, now)
	if !ok {
		if release := snap.Settings.ResultsReleaseDate; release != nil {
			resp.ReleaseIn = humanize.RelTime(*release, now, "ago", "from now")
		}
		return resp, nil
	}

	resp.Disclosed = true
	resp.Roles = result.Ordered()
	return resp, result.Gaps
}
