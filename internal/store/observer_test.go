package store

import (
	"testing"

	"gotest.tools/v3/assert"
)

// recordingObserver captures every event it receives
type recordingObserver struct {
	events []Event
}

func (ro *recordingObserver) OnEvent(event Event) {
	ro.events = append(ro.events, event)
}

func TestObserverReceivesInsertEvents(t *testing.T) {
	s := New(nil)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.NilError(t, s.Insert(testRecord(2, 2014)))

	assert.Equal(t, 2, len(obs.events))
	for _, event := range obs.events {
		assert.Equal(t, EventInsert, event.Type)
		assert.Assert(t, !event.Timestamp.IsZero())
	}
}

func TestObserverNotNotifiedOnFailedInsert(t *testing.T) {
	s := New(nil)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	assert.Assert(t, s.Insert(testRecord(1, 2013)) != nil)

	assert.Equal(t, 1, len(obs.events))
}

func TestRemoveObserver(t *testing.T) {
	s := New(nil)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	assert.NilError(t, s.Insert(testRecord(1, 2013)))
	s.RemoveObserver(obs)
	assert.NilError(t, s.Insert(testRecord(2, 2013)))

	assert.Equal(t, 1, len(obs.events))
}
