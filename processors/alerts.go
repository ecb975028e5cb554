package processors

import (
	"strings"

	"github.com/paolobietolini/atac-realtime/feeds"
	"github.com/paolobietolini/atac-realtime/records"
)

// FlattenAlerts emits one record per entity. Texts prefer the translation
// in language; route_id and stop_id come from the first informed entity
// carrying each.
func FlattenAlerts(snapshot *feeds.Snapshot, language string) []records.AlertRecord {
	out := make([]records.AlertRecord, 0, len(snapshot.Entities))
	for _, entity := range snapshot.Entities {
		alert, ok := entity.(*feeds.Alert)
		if !ok {
			continue
		}
		record := records.AlertRecord{
			FeedTimestamp:   int64(snapshot.Timestamp),
			EntityID:        alert.ID,
			Cause:           alert.Cause,
			Effect:          alert.Effect,
			HeaderText:      translate(alert.HeaderText, language),
			DescriptionText: translate(alert.DescriptionText, language),
		}
		for _, informed := range alert.InformedEntity {
			if record.RouteID == nil && informed.RouteID != nil {
				record.RouteID = informed.RouteID
			}
			if record.StopID == nil && informed.StopID != nil {
				record.StopID = informed.StopID
			}
		}
		out = append(out, record)
	}
	return out
}

func translate(texts []feeds.Translation, language string) *string {
	if len(texts) == 0 {
		return nil
	}
	if language != "" {
		for _, t := range texts {
			if t.Language != nil && strings.EqualFold(*t.Language, language) {
				text := t.Text
				return &text
			}
		}
	}
	text := texts[0].Text
	return &text
}
