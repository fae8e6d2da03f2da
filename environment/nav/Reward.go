package nav

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/utils/floatutils"
)

// Composer computes the scalar per-step reward as a sum of shaping,
// effort, contact, and outcome terms.
type Composer struct {
	slackReward           float64
	successReward         float64
	potentialRewardWeight float64
	electricityWeight     float64
	stallTorqueWeight     float64
	collisionWeight       float64
	energyClip            float64
	distTol               float64
	deathZThreshold       float64

	penalizedLinks map[physics.LinkID]bool

	robot   physics.Robot
	task    Task
	tracker *PotentialTracker
}

// NewComposer constructs a reward composer over a robot and task
func NewComposer(config *Config, robot physics.Robot, task Task,
	tracker *PotentialTracker) *Composer {
	penalized := make(map[physics.LinkID]bool)
	for _, link := range config.CollisionLinks {
		penalized[physics.LinkID(link)] = true
	}

	return &Composer{
		slackReward:           config.SlackReward,
		successReward:         config.SuccessReward,
		potentialRewardWeight: config.PotentialRewardWeight,
		electricityWeight:     config.ElectricityRewardWeight,
		stallTorqueWeight:     config.StallTorqueRewardWeight,
		collisionWeight:       config.CollisionRewardWeight,
		energyClip:            config.EnergyClip,
		distTol:               config.DistTol,
		deathZThreshold:       config.DeathZThreshold,
		penalizedLinks:        penalized,
		robot:                 robot,
		task:                  task,
		tracker:               tracker,
	}
}

// Compute returns the reward for the step just taken. The contacts
// argument holds the contact events collected over the step's
// sub-ticks, and transitioned reports whether the task advanced a
// stage during this step. On a stage transition the potential
// baseline is re-established at the new stage's potential and half the
// success reward is granted in place of the shaping term.
func (c *Composer) Compute(contacts []physics.ContactEvent,
	transitioned bool) (float64, error) {
	reward := c.slackReward

	potential, err := c.task.Potential()
	if err != nil {
		return 0, fmt.Errorf("compute: %v", err)
	}

	if transitioned {
		if err := c.tracker.Init(potential); err != nil {
			return 0, fmt.Errorf("compute: %v", err)
		}
		reward += c.successReward / 2
	} else {
		delta, err := c.tracker.Update(potential)
		if err != nil {
			return 0, fmt.Errorf("compute: %v", err)
		}
		reward += delta * c.potentialRewardWeight
	}

	electricity, stall := c.effort()
	reward += electricity
	reward += stall

	reward += c.collision(contacts)

	if physics.Distance(c.task.Target(),
		c.task.PositionOfInterest()) < c.distTol {
		reward += c.successReward
	}

	// Tipping over forfeits the success-bonus magnitude
	if c.task.HasDeathPenalty() &&
		c.robot.State().Z > c.deathZThreshold {
		reward -= c.successReward
	}

	if !floatutils.Finite(reward) {
		return 0, fmt.Errorf("compute: non-finite reward %v", reward)
	}
	return reward, nil
}

// effort returns the electricity and stall torque penalty terms,
// computed over all actuated joints and each clipped to
// [-energyClip, 0] when an energy clip is configured
func (c *Composer) effort() (float64, float64) {
	joints := c.robot.State().Joints()
	if len(joints) == 0 {
		return 0, 0
	}

	var electricity, stall float64
	for _, joint := range joints {
		electricity += math.Abs(joint.Velocity * joint.Torque)
		stall += joint.Torque * joint.Torque
	}
	n := float64(len(joints))

	electricity = electricity / n * c.electricityWeight
	stall = stall / n * c.stallTorqueWeight

	if c.energyClip > 0 {
		electricity = floatutils.Clip(electricity, -c.energyClip, 0)
		stall = floatutils.Clip(stall, -c.energyClip, 0)
	}
	return electricity, stall
}

// collision returns the contact penalty: the collision weight once if
// any contact on the robot's penalized links occurred this step, no
// matter how many. Contacts the task whitelists, such as grasping a
// door handle, are free.
func (c *Composer) collision(contacts []physics.ContactEvent) float64 {
	for _, ev := range contacts {
		if !c.penalizedLinks[ev.LinkA] {
			continue
		}
		if c.task.ContactWhitelisted(ev) {
			continue
		}
		return c.collisionWeight
	}
	return 0
}
