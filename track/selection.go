package track

import (
	"fmt"

	"github.com/robmorgan/cadence/engine/scale"
	"github.com/robmorgan/cadence/event"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// CopyTimeRange snapshots every event with start <= time <= end from both
// namespaces. Tracks with no events in range are left out.
func (m *Manager) CopyTimeRange(start, end float64) (Selection, error) {
	if !scale.Finite(start) || !scale.Finite(end) || start < 0 || end < start {
		return Selection{}, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, start, end)
	}

	sel := Selection{
		StartTime:     start,
		EndTime:       end,
		AnimationData: make(map[string][]Keyframe),
		MusicData:     make(map[string][]Note),
	}

	m.mu.RLock()
	for id, s := range m.animation {
		kfs := s.between(start, end)
		for i := range kfs {
			kfs[i].Properties = maps.Clone(kfs[i].Properties)
		}
		if len(kfs) > 0 {
			sel.AnimationData[id] = kfs
		}
	}
	for id, s := range m.music {
		if notes := s.between(start, end); len(notes) > 0 {
			sel.MusicData[id] = notes
		}
	}
	m.mu.RUnlock()

	m.log.WithFields(logrus.Fields{"start": start, "end": end, "events": sel.Count()}).Debug("selection copied")
	m.publish([]event.Event{SelectionCopied{Selection: sel}})
	return sel, nil
}

// PasteTimeRange inserts a copy of every selected event shifted by
// targetTime - sel.StartTime. Each pasted event gets a new id, and missing
// destination tracks are created.
func (m *Manager) PasteTimeRange(targetTime float64, sel Selection) (PasteResult, error) {
	if err := validTime(targetTime); err != nil {
		return PasteResult{}, err
	}
	offset := targetTime - sel.StartTime

	// validate everything before touching any track
	for _, kfs := range sel.AnimationData {
		for _, kf := range kfs {
			if err := validTime(kf.Time + offset); err != nil {
				return PasteResult{}, fmt.Errorf("pasting keyframe %s: %w", kf.ID, err)
			}
		}
	}
	for _, notes := range sel.MusicData {
		for _, n := range notes {
			if err := validTime(n.Time + offset); err != nil {
				return PasteResult{}, fmt.Errorf("pasting note %s: %w", n.ID, err)
			}
		}
	}

	res := PasteResult{
		TargetTime:    targetTime,
		TimeOffset:    offset,
		AnimationData: make(map[string][]Keyframe),
		MusicData:     make(map[string][]Note),
	}
	var pending []event.Event

	m.mu.Lock()
	for id, kfs := range sel.AnimationData {
		if len(kfs) == 0 {
			continue
		}
		if created := m.ensureLocked(id, Animation); created != nil {
			pending = append(pending, created)
		}
		for _, kf := range kfs {
			pasted := kf.withID(m.newID()).retimed(kf.Time+offset, 1)
			m.animation[id].insert(pasted)
			res.AnimationData[id] = append(res.AnimationData[id], pasted)
			pending = append(pending, KeyframeAdded{TrackID: id, Keyframe: pasted})
		}
	}
	for id, notes := range sel.MusicData {
		if len(notes) == 0 {
			continue
		}
		if created := m.ensureLocked(id, Music); created != nil {
			pending = append(pending, created)
		}
		for _, n := range notes {
			pasted := n.withID(m.newID()).retimed(n.Time+offset, 1)
			m.music[id].insert(pasted)
			res.MusicData[id] = append(res.MusicData[id], pasted)
			pending = append(pending, NoteAdded{TrackID: id, Note: pasted})
		}
	}
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"target": targetTime, "offset": offset, "events": sel.Count()}).Debug("selection pasted")
	pending = append(pending, SelectionPasted{TargetTime: targetTime, Selection: sel, TimeOffset: offset, Created: sel.Count()})
	m.publish(pending)
	return res, nil
}
