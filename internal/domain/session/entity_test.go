package session_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/session"
)

func TestCanTransition(t *testing.T) {
	all := []session.Status{
		session.StatusRequested,
		session.StatusAccepted,
		session.StatusScheduled,
		session.StatusInProgress,
		session.StatusCompleted,
		session.StatusCancelled,
		session.StatusDisputed,
	}

	allowed := map[session.Transition][]session.Status{
		session.TransitionAccept:   {session.StatusRequested},
		session.TransitionSchedule: {session.StatusAccepted},
		session.TransitionStart:    {session.StatusAccepted, session.StatusScheduled},
		session.TransitionComplete: {session.StatusInProgress},
		session.TransitionCancel: {
			session.StatusRequested, session.StatusAccepted,
			session.StatusScheduled, session.StatusInProgress,
		},
		session.TransitionDispute: {session.StatusCompleted},
	}

	for op, fromStates := range allowed {
		ok := make(map[session.Status]bool, len(fromStates))
		for _, s := range fromStates {
			ok[s] = true
		}
		for _, from := range all {
			got := session.CanTransition(from, op)
			if got != ok[from] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, op, got, ok[from])
			}
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	ops := []session.Transition{
		session.TransitionAccept,
		session.TransitionSchedule,
		session.TransitionStart,
		session.TransitionComplete,
		session.TransitionCancel,
	}
	for _, op := range ops {
		if session.CanTransition(session.StatusCancelled, op) {
			t.Errorf("cancelled session must reject %s", op)
		}
		if session.CanTransition(session.StatusDisputed, op) {
			t.Errorf("disputed session must reject %s", op)
		}
	}
}

func TestTargetState(t *testing.T) {
	cases := []struct {
		op   session.Transition
		want session.Status
	}{
		{session.TransitionAccept, session.StatusAccepted},
		{session.TransitionSchedule, session.StatusScheduled},
		{session.TransitionStart, session.StatusInProgress},
		{session.TransitionComplete, session.StatusCompleted},
		{session.TransitionCancel, session.StatusCancelled},
		{session.TransitionDispute, session.StatusDisputed},
	}
	for _, c := range cases {
		if got := session.TargetState(c.op); got != c.want {
			t.Errorf("TargetState(%s) = %s, want %s", c.op, got, c.want)
		}
	}
}

func TestIsParticipant(t *testing.T) {
	learner := uuid.New()
	teacher := uuid.New()
	s := &session.Session{LearnerID: learner, TeacherID: teacher}

	if !s.IsParticipant(learner) || !s.IsParticipant(teacher) {
		t.Fatal("learner and teacher must both be participants")
	}
	if s.IsParticipant(uuid.New()) {
		t.Fatal("outsider must not be a participant")
	}
}
