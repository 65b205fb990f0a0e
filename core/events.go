package core

import (
	"sort"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/model"
)

// SummarizeConflicts merges conflict records into encounters: consecutive
// records against the same mission no more than gap apart belong to one
// event. The input is not modified. Events are ordered by start time, then
// mission ID.
func SummarizeConflicts(records []model.Conflict, gap time.Duration) []model.ConflictEvent {
	if len(records) == 0 {
		return nil
	}

	byMission := make(map[string][]model.Conflict)
	var order []string
	for _, rec := range records {
		if _, seen := byMission[rec.OtherMissionID]; !seen {
			order = append(order, rec.OtherMissionID)
		}
		byMission[rec.OtherMissionID] = append(byMission[rec.OtherMissionID], rec)
	}

	var events []model.ConflictEvent
	for _, id := range order {
		recs := byMission[id]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Time.Before(recs[j].Time) })

		var cur *model.ConflictEvent
		for _, rec := range recs {
			if cur != nil && rec.Time.Sub(cur.EndTime) <= gap {
				cur.EndTime = rec.Time
				cur.Records++
				if rec.Distance < cur.MinDistance {
					cur.MinDistance = rec.Distance
					cur.ClosestTime = rec.Time
					cur.ClosestLocation = rec.Location
				}
				continue
			}
			if cur != nil {
				events = append(events, *cur)
			}
			cur = &model.ConflictEvent{
				OtherMissionID:  id,
				StartTime:       rec.Time,
				EndTime:         rec.Time,
				ClosestTime:     rec.Time,
				ClosestLocation: rec.Location,
				MinDistance:     rec.Distance,
				Records:         1,
			}
		}
		if cur != nil {
			events = append(events, *cur)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].OtherMissionID < events[j].OtherMissionID
	})
	return events
}
