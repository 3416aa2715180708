package sim

import (
	"math"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func kindIs(kind string) Condition {
	return func(_ *EventScheduler, e *Event) bool {
		return e.Context()["kind"] == kind
	}
}

var _ = ginkgo.Describe("EventScheduler", func() {
	var scheduler *EventScheduler

	ginkgo.BeforeEach(func() {
		scheduler = NewEventScheduler()
	})

	ginkgo.Context("scheduling", func() {
		ginkgo.It("should start with the clock at zero and an empty queue", func() {
			Expect(scheduler.CurrentTime()).To(Equal(VTime(0)))
			Expect(scheduler.EventCount()).To(Equal(0))
			Expect(scheduler.EventLog()).To(BeEmpty())
		})

		ginkgo.It("should reject nil events", func() {
			Expect(scheduler.Schedule(nil)).To(MatchError(ErrNilEvent))
		})

		ginkgo.It("should allow prescheduling before the clock moves", func() {
			evt := NewEvent(-10.0, nil, nil)

			Expect(scheduler.Schedule(evt)).To(Succeed())
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should reject past times once the clock has advanced", func() {
			_, err := scheduler.Timeout(5.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			scheduler.Run(StopNever(), nil, true)

			err = scheduler.Schedule(NewEvent(-10.0, nil, nil))
			Expect(err).To(MatchError(ErrPastTime))
			Expect(scheduler.EventCount()).To(Equal(0))
		})

		ginkgo.It("should become live even when a run pops nothing", func() {
			scheduler.Step()

			err := scheduler.Schedule(NewEvent(-10.0, nil, nil))
			Expect(err).To(MatchError(ErrPastTime))
		})

		ginkgo.It("should schedule relative to the current time", func() {
			evt, err := scheduler.Timeout(4.0, nil, Context{"kind": "arrival"})

			Expect(err).NotTo(HaveOccurred())
			Expect(evt.Time()).To(Equal(VTime(4.0)))
			Expect(scheduler.NextEvent()).To(BeIdenticalTo(evt))
		})
	})

	ginkgo.Context("running", func() {
		ginkgo.It("should execute events in nondecreasing time order", func() {
			var order []string
			for _, setup := range []struct {
				t    VTime
				name string
			}{{4.0, "d"}, {1.0, "a"}, {3.0, "c"}, {2.0, "b"}} {
				name := setup.name
				_, err := scheduler.Timeout(setup.t, func() any {
					order = append(order, name)
					return name
				}, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			log := scheduler.Run(StopNever(), nil, true)

			Expect(order).To(Equal([]string{"a", "b", "c", "d"}))
			Expect(log).To(HaveLen(4))
			Expect(scheduler.CurrentTime()).To(Equal(VTime(4.0)))
		})

		ginkgo.It("should let actions schedule new events mid-run", func() {
			var order []string

			_, err := scheduler.Timeout(2.0, func() any {
				order = append(order, "first")
				_, err := scheduler.Timeout(1.0, func() any {
					order = append(order, "spawned")
					return nil
				}, nil)
				Expect(err).NotTo(HaveOccurred())
				return nil
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = scheduler.Timeout(4.0, func() any {
				order = append(order, "last")
				return nil
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			scheduler.Run(StopNever(), nil, true)

			Expect(order).To(Equal([]string{"first", "spawned", "last"}))
		})

		ginkgo.It("should terminate on an empty queue even if stop never holds", func() {
			_, err := scheduler.Timeout(1.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			log := scheduler.Run(StopNever(), nil, true)

			Expect(log).To(HaveLen(1))
			Expect(scheduler.EventCount()).To(Equal(0))
		})

		ginkgo.It("should log one entry per pop, in pop order", func() {
			events := make([]*Event, 0, 5)
			for i := 0; i < 5; i++ {
				evt, err := scheduler.Timeout(VTime(i), nil, nil)
				Expect(err).NotTo(HaveOccurred())
				events = append(events, evt)
			}

			log := scheduler.Run(StopNever(), nil, true)

			Expect(log).To(HaveLen(5))
			for i, entry := range log {
				Expect(entry.Event).To(BeIdenticalTo(events[i]))
			}
		})

		ginkgo.It("should apply the log filter", func() {
			_, err := scheduler.Timeout(1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(2.0, nil, Context{"kind": "departure"})
			Expect(err).NotTo(HaveOccurred())

			log := scheduler.Run(StopNever(), func(e *Event, _ any) bool {
				return e.Context()["kind"] == "departure"
			}, true)

			Expect(log).To(HaveLen(1))
			Expect(log[0].Event.Context()["kind"]).To(Equal("departure"))
		})

		ginkgo.It("should not log when logging is disabled", func() {
			_, err := scheduler.Timeout(1.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			log := scheduler.Run(StopNever(), nil, false)

			Expect(log).To(BeEmpty())
			Expect(scheduler.EventLog()).To(BeEmpty())
			Expect(scheduler.EventCount()).To(Equal(0))
		})

		ginkgo.It("should log fizzled events with a nil result", func() {
			ran := false
			evt, err := scheduler.Timeout(5.0, func() any {
				ran = true
				return "work"
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			evt.Deactivate()
			log := scheduler.Run(StopNever(), nil, true)

			Expect(ran).To(BeFalse())
			Expect(log).To(HaveLen(1))
			Expect(log[0].Event).To(BeIdenticalTo(evt))
			Expect(log[0].Result).To(BeNil())
		})

		ginkgo.It("should fire hooks around each event", func() {
			hook := &recordingHook{}
			scheduler.AcceptHook(hook)

			_, err := scheduler.Timeout(1.0, func() any { return "payload" }, nil)
			Expect(err).NotTo(HaveOccurred())

			scheduler.Run(StopNever(), nil, true)

			Expect(hook.positions).To(Equal([]*HookPos{
				HookPosBeforeEvent, HookPosAfterEvent,
			}))
			Expect(hook.details[1]).To(Equal("payload"))
		})
	})

	ginkgo.Context("run until max time", func() {
		ginkgo.It("should stop before the boundary", func() {
			for _, t := range []VTime{2, 5, 10} {
				_, err := scheduler.Timeout(t, nil, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			log := scheduler.RunUntilMaxTime(6.0, nil, true)

			Expect(log).To(HaveLen(2))
			Expect(scheduler.CurrentTime()).To(Equal(VTime(5.0)))
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should never execute an event exactly at the boundary", func() {
			for _, t := range []VTime{2, 5, 10} {
				_, err := scheduler.Timeout(t, nil, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			scheduler.RunUntilMaxTime(6.0, nil, true)
			log := scheduler.RunUntilMaxTime(10.0, nil, true)

			Expect(log).To(HaveLen(2))
			Expect(scheduler.EventCount()).To(Equal(1))

			log = scheduler.RunUntilMaxTime(10.5, nil, true)
			Expect(log).To(HaveLen(3))
			Expect(scheduler.CurrentTime()).To(Equal(VTime(10.0)))
		})

		ginkgo.It("should never re-execute past events across repeated calls", func() {
			count := 0
			for _, t := range []VTime{1, 2, 3} {
				_, err := scheduler.Timeout(t, func() any {
					count++
					return nil
				}, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			scheduler.RunUntilMaxTime(2.5, nil, true)
			scheduler.RunUntilMaxTime(2.5, nil, true)
			scheduler.RunUntilMaxTime(4.0, nil, true)

			Expect(count).To(Equal(3))
		})
	})

	ginkgo.Context("run until a given event", func() {
		ginkgo.It("should stop once the target event is logged", func() {
			_, err := scheduler.Timeout(1.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			target, err := scheduler.Timeout(2.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(3.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			log := scheduler.RunUntilEvent(target, true)

			Expect(log).To(HaveLen(2))
			Expect(log[1].Event).To(BeIdenticalTo(target))
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should drain the queue if the target never executes", func() {
			_, err := scheduler.Timeout(1.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			orphan := NewEvent(99.0, nil, nil)
			log := scheduler.RunUntilEvent(orphan, true)

			Expect(log).To(HaveLen(1))
			Expect(scheduler.EventCount()).To(Equal(0))
		})
	})

	ginkgo.Context("stepping", func() {
		ginkgo.It("should execute a single event without logging", func() {
			evt, err := scheduler.Timeout(2.0, func() any { return "tick" }, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(4.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			popped, result := scheduler.Step()

			Expect(popped).To(BeIdenticalTo(evt))
			Expect(result).To(Equal("tick"))
			Expect(scheduler.CurrentTime()).To(Equal(VTime(2.0)))
			Expect(scheduler.EventCount()).To(Equal(1))
			Expect(scheduler.EventLog()).To(BeEmpty())
		})

		ginkgo.It("should be a no-op on an empty queue", func() {
			popped, result := scheduler.Step()

			Expect(popped).To(BeNil())
			Expect(result).To(BeNil())
		})
	})

	ginkgo.Context("lookup", func() {
		ginkgo.It("should peek the earliest time", func() {
			Expect(math.IsInf(float64(scheduler.Peek()), 1)).To(BeTrue())

			_, err := scheduler.Timeout(7.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(scheduler.Peek()).To(Equal(VTime(7.0)))
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should find events by condition in time order", func() {
			_, err := scheduler.Timeout(1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())
			early, err := scheduler.Timeout(
				2.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(3.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())

			Expect(scheduler.NextEventByCondition(kindIs("service"))).
				To(BeIdenticalTo(early))

			t, ok := scheduler.PeekByCondition(kindIs("service"))
			Expect(ok).To(BeTrue())
			Expect(t).To(Equal(VTime(2.0)))

			_, ok = scheduler.PeekByCondition(kindIs("repair"))
			Expect(ok).To(BeFalse())
			Expect(scheduler.NextEventByCondition(kindIs("repair"))).
				To(BeNil())
		})
	})

	ginkgo.Context("activation and deactivation", func() {
		ginkgo.It("should toggle the earliest event", func() {
			evt, err := scheduler.Timeout(1.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			scheduler.DeactivateNextEvent()
			Expect(evt.Status()).To(Equal(StatusInactive))

			scheduler.ActivateNextEvent()
			Expect(evt.Status()).To(Equal(StatusActive))
		})

		ginkgo.It("should tolerate an empty queue", func() {
			scheduler.ActivateNextEvent()
			scheduler.DeactivateNextEvent()
			scheduler.ActivateAllEvents()
			scheduler.DeactivateAllEvents()
			scheduler.CancelNextEvent()
			scheduler.CancelAllEvents()

			Expect(scheduler.EventCount()).To(Equal(0))
		})

		ginkgo.It("should toggle every queued event", func() {
			events := make([]*Event, 0, 3)
			for i := 0; i < 3; i++ {
				evt, err := scheduler.Timeout(VTime(i), nil, nil)
				Expect(err).NotTo(HaveOccurred())
				events = append(events, evt)
			}

			scheduler.DeactivateAllEvents()
			for _, evt := range events {
				Expect(evt.Status()).To(Equal(StatusInactive))
			}

			scheduler.ActivateAllEvents()
			for _, evt := range events {
				Expect(evt.Status()).To(Equal(StatusActive))
			}
		})

		ginkgo.It("should toggle by condition", func() {
			arrival, err := scheduler.Timeout(
				1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())
			service1, err := scheduler.Timeout(
				2.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())
			service2, err := scheduler.Timeout(
				3.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())

			scheduler.DeactivateAllEventsByCondition(kindIs("service"))
			Expect(arrival.Status()).To(Equal(StatusActive))
			Expect(service1.Status()).To(Equal(StatusInactive))
			Expect(service2.Status()).To(Equal(StatusInactive))

			scheduler.ActivateNextEventByCondition(kindIs("service"))
			Expect(service1.Status()).To(Equal(StatusActive))
			Expect(service2.Status()).To(Equal(StatusInactive))

			scheduler.ActivateAllEventsByCondition(kindIs("service"))
			Expect(service2.Status()).To(Equal(StatusActive))

			scheduler.DeactivateNextEventByCondition(kindIs("arrival"))
			Expect(arrival.Status()).To(Equal(StatusInactive))

			// No match, no effect.
			scheduler.DeactivateNextEventByCondition(kindIs("repair"))
			scheduler.ActivateNextEventByCondition(kindIs("repair"))
		})
	})

	ginkgo.Context("cancellation", func() {
		ginkgo.It("should remove the earliest event for good", func() {
			ran := false
			_, err := scheduler.Timeout(1.0, func() any {
				ran = true
				return nil
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			scheduler.CancelNextEvent()
			log := scheduler.Run(StopNever(), nil, true)

			Expect(ran).To(BeFalse())
			Expect(log).To(BeEmpty())
		})

		ginkgo.It("should cancel the first match only", func() {
			service1, err := scheduler.Timeout(
				2.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())
			service2, err := scheduler.Timeout(
				3.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())

			scheduler.CancelNextEventByCondition(kindIs("service"))

			Expect(scheduler.EventCount()).To(Equal(1))
			Expect(scheduler.NextEvent()).To(BeIdenticalTo(service2))
			_ = service1

			// No match leaves the queue alone.
			scheduler.CancelNextEventByCondition(kindIs("repair"))
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should cancel all matches", func() {
			_, err := scheduler.Timeout(1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(2.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())
			_, err = scheduler.Timeout(3.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())

			scheduler.CancelAllEventsByCondition(kindIs("service"))

			Expect(scheduler.EventCount()).To(Equal(1))
			Expect(scheduler.NextEvent().Context()["kind"]).To(Equal("arrival"))
		})

		ginkgo.It("should empty the queue unconditionally", func() {
			for i := 0; i < 4; i++ {
				_, err := scheduler.Timeout(VTime(i), nil, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			scheduler.CancelAllEvents()

			Expect(scheduler.EventCount()).To(Equal(0))
		})
	})

	ginkgo.Context("interruption", func() {
		ginkgo.It("should reject unknown methods without mutating", func() {
			evt, err := scheduler.Timeout(5.0, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			err = scheduler.InterruptNextEvent(InterruptMethod(42), nil)

			Expect(err).To(MatchError(ErrInvalidInterruptMethod))
			Expect(evt.Status()).To(Equal(StatusActive))
			Expect(scheduler.EventCount()).To(Equal(1))
		})

		ginkgo.It("should be a no-op on an empty queue", func() {
			Expect(scheduler.InterruptNextEvent(
				InterruptDeactivate, nil)).To(Succeed())
			Expect(scheduler.EventCount()).To(Equal(0))
		})

		ginkgo.It("should deactivate the soonest event and splice in a replacement",
			func() {
				charge, err := scheduler.Timeout(
					5.0, func() any { return "charged" },
					Context{"kind": "charge"})
				Expect(err).NotTo(HaveOccurred())

				drive := NewEvent(2.0, func() any { return "driving" },
					Context{"kind": "drive"})

				err = scheduler.InterruptNextEvent(InterruptDeactivate, drive)
				Expect(err).NotTo(HaveOccurred())

				Expect(charge.Status()).To(Equal(StatusInactive))
				Expect(scheduler.EventCount()).To(Equal(2))

				log := scheduler.Run(StopNever(), nil, true)

				Expect(log).To(HaveLen(2))
				Expect(log[0].Event).To(BeIdenticalTo(drive))
				Expect(log[0].Result).To(Equal("driving"))
				Expect(log[1].Event).To(BeIdenticalTo(charge))
				Expect(log[1].Result).To(BeNil())
			})

		ginkgo.It("should cancel the soonest event and pull it to now", func() {
			charge, err := scheduler.Timeout(
				5.0, func() any { return "charged" }, nil)
			Expect(err).NotTo(HaveOccurred())

			err = scheduler.InterruptNextEvent(InterruptCancel, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(scheduler.EventCount()).To(Equal(1))
			Expect(charge.Time()).To(Equal(VTime(0)))

			log := scheduler.Run(StopNever(), nil, true)

			Expect(log).To(HaveLen(1))
			Expect(log[0].Event).To(BeIdenticalTo(charge))
			Expect(log[0].Result).To(Equal("charged"))
			Expect(scheduler.CurrentTime()).To(Equal(VTime(0)))
		})

		ginkgo.It("should interrupt the first event matching a condition", func() {
			arrival, err := scheduler.Timeout(
				1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())
			service, err := scheduler.Timeout(
				4.0, nil, Context{"kind": "service"})
			Expect(err).NotTo(HaveOccurred())

			repair := NewEvent(2.0, func() any { return "repaired" },
				Context{"kind": "repair"})

			err = scheduler.InterruptNextEventByCondition(
				kindIs("service"), InterruptCancel, repair)
			Expect(err).NotTo(HaveOccurred())

			Expect(scheduler.EventCount()).To(Equal(2))
			Expect(scheduler.NextEvent()).To(BeIdenticalTo(arrival))
			Expect(scheduler.NextEventByCondition(kindIs("service"))).
				To(BeNil())
			_ = service

			log := scheduler.Run(StopNever(), nil, true)
			Expect(log).To(HaveLen(2))
			Expect(log[1].Event).To(BeIdenticalTo(repair))
		})

		ginkgo.It("should leave the queue alone when no event matches", func() {
			_, err := scheduler.Timeout(1.0, nil, Context{"kind": "arrival"})
			Expect(err).NotTo(HaveOccurred())

			replacement := NewEvent(2.0, nil, nil)
			err = scheduler.InterruptNextEventByCondition(
				kindIs("service"), InterruptCancel, replacement)

			Expect(err).NotTo(HaveOccurred())
			Expect(scheduler.EventCount()).To(Equal(1))
		})
	})

	ginkgo.Context("interruption scenarios", func() {
		ginkgo.It("should fizzle a deactivated event and log it with a nil result",
			func() {
				sideA := false
				sideB := false

				_, err := scheduler.Timeout(5.0, func() any {
					sideA = true
					return "A"
				}, nil)
				Expect(err).NotTo(HaveOccurred())

				_, err = scheduler.Timeout(0.0, func() any {
					scheduler.DeactivateNextEvent()
					return "interrupted"
				}, nil)
				Expect(err).NotTo(HaveOccurred())

				_, err = scheduler.Timeout(10.0, func() any {
					sideB = true
					return "B"
				}, nil)
				Expect(err).NotTo(HaveOccurred())

				log := scheduler.RunUntilMaxTime(6.0, nil, true)

				Expect(sideA).To(BeFalse())
				Expect(sideB).To(BeFalse())
				Expect(log).To(HaveLen(2))
				Expect(log[0].Result).To(Equal("interrupted"))
				Expect(log[1].Event.Status()).To(Equal(StatusInactive))
				Expect(log[1].Result).To(BeNil())
			})

		ginkgo.It("should keep a cancelled event out of the log entirely", func() {
			sideA := false

			_, err := scheduler.Timeout(5.0, func() any {
				sideA = true
				return "A"
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = scheduler.Timeout(0.0, func() any {
				scheduler.CancelNextEvent()
				return "interrupted"
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = scheduler.Timeout(10.0, func() any { return "B" }, nil)
			Expect(err).NotTo(HaveOccurred())

			log := scheduler.RunUntilMaxTime(6.0, nil, true)

			Expect(sideA).To(BeFalse())
			Expect(log).To(HaveLen(1))
			Expect(log[0].Result).To(Equal("interrupted"))
			Expect(scheduler.EventCount()).To(Equal(1))
		})
	})
})

type recordingHook struct {
	positions []*HookPos
	details   []any
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
	h.details = append(h.details, ctx.Detail)
}
