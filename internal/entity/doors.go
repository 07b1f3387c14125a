package entity

// Door open/close progress thresholds. A door stops blocking only once it
// is fully open, and blocks again the moment it starts closing.
const (
	doorFullyOpen   = 1.0
	doorFullyClosed = 0.0
)

// OpenDoor begins the opening animation. Locked doors refuse.
func (idx *Index) OpenDoor(id uint64) bool {
	e, ok := idx.byID[id]
	if !ok || e.Door == nil {
		return false
	}
	if e.Flags.IsLocked() {
		return false
	}
	e.Door.Opening = true
	idx.dirty[id] = struct{}{}
	return true
}

// CloseDoor begins the closing animation. The cell blocks again
// immediately: actors must not path through a closing door.
func (idx *Index) CloseDoor(id uint64) bool {
	e, ok := idx.byID[id]
	if !ok || e.Door == nil {
		return false
	}
	e.Door.Opening = false
	e.Flags = e.Flags.With(FlagBlocking).Without(FlagOpen)
	idx.dirty[id] = struct{}{}
	return true
}

// Update advances door animation state by dt seconds. It is the only
// per-frame work the index performs; it is not a general entity tick.
func (idx *Index) Update(dt float64) {
	if dt <= 0 {
		return
	}
	for id, e := range idx.byID {
		door := e.Door
		if door == nil {
			continue
		}
		if door.Opening {
			if door.Progress >= doorFullyOpen {
				continue
			}
			door.Progress += door.Speed * dt
			if door.Progress >= doorFullyOpen {
				door.Progress = doorFullyOpen
				e.Flags = e.Flags.Without(FlagBlocking).With(FlagOpen)
				idx.dirty[id] = struct{}{}
			}
		} else {
			if door.Progress <= doorFullyClosed {
				continue
			}
			door.Progress -= door.Speed * dt
			if door.Progress <= doorFullyClosed {
				door.Progress = doorFullyClosed
				idx.dirty[id] = struct{}{}
			}
		}
	}
}
