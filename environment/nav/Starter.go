package nav

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/gonav/physics"
)

// placementLift is the height offset applied above the sampled ground
// position when landing the robot, so that the robot settles onto the
// floor instead of spawning intersecting it
const placementLift float64 = 0.1

// Placement is a starter's chosen episode start: the robot's initial
// pose and the goal position
type Placement struct {
	Initial physics.Pose
	Target  r3.Vec
}

// Starter computes and applies the robot and goal placement at the
// start of each episode
type Starter interface {
	// Place positions the robot for a new episode and returns the
	// chosen placement. The burstTicks argument is the number of
	// physics ticks a candidate placement is simulated for when
	// checking that it is collision free.
	Place(facade physics.Facade, robot physics.Robot,
		burstTicks int) (Placement, error)
}

// PoseStarter starts every episode from the same fixed robot pose and
// goal position
type PoseStarter struct {
	pose   physics.Pose
	target r3.Vec
}

// NewPoseStarter returns a starter which always uses the configured
// fixed placement
func NewPoseStarter(config *Config) (*PoseStarter, error) {
	if len(config.InitialPos) != 3 || len(config.InitialOrn) != 3 {
		return nil, fmt.Errorf("newPoseStarter: initial pose needs 3 "+
			"position and 3 orientation components, got %v and %v",
			len(config.InitialPos), len(config.InitialOrn))
	}
	if len(config.TargetPos) != 3 {
		return nil, fmt.Errorf("newPoseStarter: target position needs 3 "+
			"components, got %v", len(config.TargetPos))
	}

	return &PoseStarter{
		pose: physics.Pose{
			Position: r3.Vec{
				X: config.InitialPos[0],
				Y: config.InitialPos[1],
				Z: config.InitialPos[2] + placementLift,
			},
			Orientation: r3.Vec{
				X: config.InitialOrn[0],
				Y: config.InitialOrn[1],
				Z: config.InitialOrn[2],
			},
		},
		target: r3.Vec{
			X: config.TargetPos[0],
			Y: config.TargetPos[1],
			Z: config.TargetPos[2],
		},
	}, nil
}

// Place positions the robot at the fixed initial pose
func (p *PoseStarter) Place(facade physics.Facade, robot physics.Robot,
	burstTicks int) (Placement, error) {
	if err := robot.SetPose(p.pose); err != nil {
		return Placement{}, fmt.Errorf("place: %v", err)
	}
	return Placement{Initial: p.pose, Target: p.target}, nil
}

// RandomPoseStarter samples the robot pose and goal position uniformly
// from configured ground regions, rejecting candidate robot poses that
// are in contact with the scene and goals closer than the minimum
// separation to the robot.
type RandomPoseStarter struct {
	x            distuv.Uniform
	y            distuv.Uniform
	yaw          distuv.Uniform
	height       distuv.Uniform
	groundZ      float64
	randomHeight bool

	minSeparation float64
	maxAttempts   int
}

// NewRandomPoseStarter returns a starter which samples placements
// uniformly from the given x and y ground intervals. When the
// configuration enables random goal heights, the goal's z coordinate
// is sampled from [0, 2] instead of using the ground height.
func NewRandomPoseStarter(config *Config, xRange, yRange r1.Interval,
	groundZ float64, seed uint64) (*RandomPoseStarter, error) {
	if xRange.Max <= xRange.Min || yRange.Max <= yRange.Min {
		return nil, fmt.Errorf("newRandomPoseStarter: empty placement "+
			"region [%v, %v] x [%v, %v]", xRange.Min, xRange.Max,
			yRange.Min, yRange.Max)
	}

	source := rand.NewSource(seed)
	return &RandomPoseStarter{
		x: distuv.Uniform{
			Min: xRange.Min, Max: xRange.Max, Src: source,
		},
		y: distuv.Uniform{
			Min: yRange.Min, Max: yRange.Max, Src: source,
		},
		yaw: distuv.Uniform{
			Min: 0, Max: 2 * math.Pi, Src: source,
		},
		height: distuv.Uniform{
			Min: 0, Max: 2, Src: source,
		},
		groundZ:       groundZ,
		randomHeight:  config.RandomHeight,
		minSeparation: config.MinSeparation,
		maxAttempts:   config.MaxPlacementAttempts,
	}, nil
}

// Place samples robot poses until one survives a short collision-free
// simulation burst, then samples a goal position at least the minimum
// separation away. Both sampling loops are capped; exhausting either
// cap is an error.
func (r *RandomPoseStarter) Place(facade physics.Facade,
	robot physics.Robot, burstTicks int) (Placement, error) {
	var pose physics.Pose
	placed := false

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		pose = physics.Pose{
			Position: r3.Vec{
				X: r.x.Rand(),
				Y: r.y.Rand(),
				Z: r.groundZ + placementLift,
			},
			Orientation: r3.Vec{Z: r.yaw.Rand()},
		}

		if err := robot.SetPose(pose); err != nil {
			return Placement{}, fmt.Errorf("place: %v", err)
		}

		clear, err := collisionFree(facade, robot, burstTicks)
		if err != nil {
			return Placement{}, fmt.Errorf("place: %v", err)
		}
		if clear {
			placed = true
			break
		}
	}
	if !placed {
		return Placement{}, fmt.Errorf("place: no collision-free robot "+
			"pose found in %v attempts", r.maxAttempts)
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		target := r3.Vec{X: r.x.Rand(), Y: r.y.Rand(), Z: r.groundZ}
		if r.randomHeight {
			target.Z = r.height.Rand()
		}

		if physics.Distance(target, pose.Position) >= r.minSeparation {
			return Placement{Initial: pose, Target: target}, nil
		}
	}
	return Placement{}, fmt.Errorf("place: no goal position at least %v "+
		"away from the robot found in %v attempts", r.minSeparation,
		r.maxAttempts)
}

// collisionFree simulates a short burst of ticks and reports whether
// the robot's base stayed contact free throughout. Arm contacts do not
// invalidate a placement; the arm settles once the episode starts.
func collisionFree(facade physics.Facade, robot physics.Robot,
	burstTicks int) (bool, error) {
	for tick := 0; tick < burstTicks; tick++ {
		if err := facade.AdvanceOneTick(); err != nil {
			return false, fmt.Errorf("collisionFree: %v", err)
		}

		contacts, err := facade.ContactPoints(robot.Body())
		if err != nil {
			return false, fmt.Errorf("collisionFree: %v", err)
		}
		for _, ev := range contacts {
			if ev.LinkA == physics.BaseLink {
				return false, nil
			}
		}
	}
	return true, nil
}
