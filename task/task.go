// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package task implements the asynchronous task collaborator.  An
// action that cannot complete synchronously (provider refresh, vm
// power operations, retirement) enqueues a task and immediately
// reports the task's id and href; the task then advances through
// Queued, Active, and Finished states in the background.
//
// Task execution is simulated: advancing a task only updates its
// record.  The dispatcher's responsibility ends at successful enqueue,
// and failures after that point are only visible by polling the tasks
// collection.
package task

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	uuid "github.com/satori/go.uuid"

	"github.com/diffeo/go-mgmtapi/mgmtapi"
)

// Task states.
const (
	StateQueued   = "Queued"
	StateActive   = "Active"
	StateFinished = "Finished"
)

// Queue creates task records and advances them in the background.
type Queue struct {
	// Store is the storage backend holding the "tasks" collection.
	Store mgmtapi.Storage

	// Clock defines a time source for task timestamps and for the
	// delay between state transitions.  Only test code should need
	// to set this.  If unset, uses a time source backed by real
	// wall-clock time.
	Clock clock.Clock

	// StepInterval is the simulated run time of each state.  If
	// unset, one second.
	StepInterval time.Duration

	// ErrorHandler is called when advancing a task in the
	// background fails.
	ErrorHandler func(error)
}

func (q *Queue) setDefaults() {
	if q.Clock == nil {
		q.Clock = clock.New()
	}
	if q.StepInterval == time.Duration(0) {
		q.StepInterval = time.Duration(1) * time.Second
	}
}

// Enqueue creates a task record in the Queued state and starts a
// background goroutine that advances it to Active and then Finished.
// It returns as soon as the record exists.
func (q *Queue) Enqueue(name, message string) (*mgmtapi.Record, error) {
	q.setDefaults()
	now := q.Clock.Now().UTC()
	rec, err := q.Store.Create("tasks", map[string]interface{}{
		"name":       name,
		"state":      StateQueued,
		"status":     "Ok",
		"message":    message,
		"uid":        uuid.NewV4().String(),
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	go q.run(rec.ID)
	return rec, nil
}

// Advance moves a task one state forward and returns the new state.
// Advancing a Finished task is a no-op.
func (q *Queue) Advance(id uint64) (string, error) {
	q.setDefaults()
	rec, err := q.Store.Find("tasks", id)
	if err != nil {
		return "", err
	}
	var next string
	attrs := map[string]interface{}{
		"updated_at": q.Clock.Now().UTC(),
	}
	switch rec.StringAttr("state") {
	case StateQueued:
		next = StateActive
	case StateActive:
		next = StateFinished
		attrs["message"] = "Task completed successfully"
	default:
		return StateFinished, nil
	}
	attrs["state"] = next
	if _, err := q.Store.Update("tasks", id, attrs); err != nil {
		return "", err
	}
	return next, nil
}

// run drives one task to completion in the background.
func (q *Queue) run(id uint64) {
	for {
		timer := q.Clock.Timer(q.StepInterval)
		<-timer.C
		state, err := q.Advance(id)
		if err != nil {
			// The task may have been deleted; stop quietly.
			if err != mgmtapi.ErrNotFound && q.ErrorHandler != nil {
				q.ErrorHandler(fmt.Errorf("advancing task %d: %v", id, err))
			}
			return
		}
		if state == StateFinished {
			return
		}
	}
}
