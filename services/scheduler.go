// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler wires the three batch sweeps onto a cadence: daily
// assignment shortly after midnight, weekly assignment on Monday morning,
// expiration every hour. The sweeps themselves stay plain synchronous
// methods so any trigger can drive them.
func (p *ChallengeProcessor) StartSweepScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.CronJob("5 0 * * *", false),
		gocron.NewTask(func() {
			count, err := p.AssignDailyChallenges()
			if err != nil {
				log.Printf("[Scheduler] Daily assignment sweep failed: %v", err)
				return
			}
			log.Printf("✅ Daily sweep done: %d assignment(s) created", count)
		}),
	)

	_, _ = sched.NewJob(
		gocron.CronJob("10 0 * * 1", false),
		gocron.NewTask(func() {
			count, err := p.AssignWeeklyChallenges()
			if err != nil {
				log.Printf("[Scheduler] Weekly assignment sweep failed: %v", err)
				return
			}
			log.Printf("✅ Weekly sweep done: %d assignment(s) created", count)
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			count, err := p.ExpireOverdueChallenges()
			if err != nil {
				log.Printf("[Scheduler] Expiration sweep failed: %v", err)
				return
			}
			if count > 0 {
				log.Printf("✅ Expiration sweep done: %d assignment(s) expired", count)
			}
		}),
	)
}
